package entities

import (
	"errors"
	"fmt"
)

// ErrorClass decides how a room error is handled
type ErrorClass int

const (
	// ClassUser errors are shown to the invoker
	ClassUser ErrorClass = iota
	// ClassTransient errors may succeed on retry
	ClassTransient
	// ClassInvariant errors mean stored state diverged from the platform and was repaired
	ClassInvariant
	// ClassFatal errors stop the current pass and go to the supervisor
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassUser:
		return "user"
	case ClassTransient:
		return "transient"
	case ClassInvariant:
		return "invariant"
	case ClassFatal:
		return "fatal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ErrorCode names a specific room failure. User codes double as localization keys.
type ErrorCode string

const (
	CodeNotInRoom          ErrorCode = "not_in_room"
	CodeNotLeader          ErrorCode = "not_leader"
	CodeLoveRoom           ErrorCode = "love_room"
	CodeSelfTarget         ErrorCode = "self_target"
	CodeTargetNotPresent   ErrorCode = "target_not_present"
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeMissingPermissions ErrorCode = "missing_permissions"
	CodeInvalidInput       ErrorCode = "invalid_input"
	CodeNotConfigured      ErrorCode = "not_configured"
	CodeNoTarget           ErrorCode = "no_target"

	CodeTransient    ErrorCode = "transient"
	CodeOrphanedRoom ErrorCode = "orphaned_room"
	CodeStoreFailure ErrorCode = "store_failure"
	CodeUnauthorized ErrorCode = "unauthorized"
)

// RoomError is the error value returned by room services
type RoomError struct {
	Code    ErrorCode
	Class   ErrorClass
	Message string
	Err     error
}

func (e *RoomError) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

// Is matches another RoomError by code so sentinels work with errors.Is
func (e *RoomError) Is(target error) bool {
	var other *RoomError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewUserError builds a user-visible error
func NewUserError(code ErrorCode, message string) *RoomError {
	return &RoomError{Code: code, Class: ClassUser, Message: message}
}

// NewTransientError wraps a retriable failure
func NewTransientError(err error) *RoomError {
	return &RoomError{Code: CodeTransient, Class: ClassTransient, Err: err}
}

// NewInvariantError records a repaired divergence
func NewInvariantError(code ErrorCode, message string) *RoomError {
	return &RoomError{Code: code, Class: ClassInvariant, Message: message}
}

// NewFatalError wraps a failure that must reach the supervisor
func NewFatalError(code ErrorCode, err error) *RoomError {
	return &RoomError{Code: code, Class: ClassFatal, Err: err}
}

// Sentinels for errors.Is checks
var (
	ErrNotInRoom          = NewUserError(CodeNotInRoom, "")
	ErrNotLeader          = NewUserError(CodeNotLeader, "")
	ErrLoveRoom           = NewUserError(CodeLoveRoom, "")
	ErrSelfTarget         = NewUserError(CodeSelfTarget, "")
	ErrTargetNotPresent   = NewUserError(CodeTargetNotPresent, "")
	ErrRateLimited        = NewUserError(CodeRateLimited, "")
	ErrMissingPermissions = NewUserError(CodeMissingPermissions, "")
	ErrInvalidInput       = NewUserError(CodeInvalidInput, "")
	ErrNotConfigured      = NewUserError(CodeNotConfigured, "")
	ErrNoTarget           = NewUserError(CodeNoTarget, "")
)

// ClassOf returns the class of err. Errors outside the taxonomy count as fatal.
func ClassOf(err error) ErrorClass {
	var roomErr *RoomError
	if errors.As(err, &roomErr) {
		return roomErr.Class
	}
	return ClassFatal
}

// IsUserError checks whether err should be shown to the invoker
func IsUserError(err error) bool {
	var roomErr *RoomError
	return errors.As(err, &roomErr) && roomErr.Class == ClassUser
}

// CodeOf returns the code of err, or "" outside the taxonomy
func CodeOf(err error) ErrorCode {
	var roomErr *RoomError
	if errors.As(err, &roomErr) {
		return roomErr.Code
	}
	return ""
}
