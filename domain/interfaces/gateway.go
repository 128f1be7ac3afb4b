package interfaces

import (
	"context"
	"errors"
	"fmt"

	"chisato/domain/entities"
)

// ErrorKind classifies a failed platform call
type ErrorKind string

const (
	ErrorKindForbidden    ErrorKind = "forbidden"
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindRateLimited  ErrorKind = "rate_limited"
	ErrorKindTransient    ErrorKind = "transient"
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	ErrorKindUnknown      ErrorKind = "unknown"
)

// GatewayError is the only error type returned by PlatformGateway
type GatewayError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a gateway error, ErrorKindUnknown for other errors
// and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ErrorKindUnknown
}

// IsNotFound checks for a missing channel, member or message
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}

// IsRetriable checks for failures worth trying again
func IsRetriable(err error) bool {
	kind := KindOf(err)
	return kind == ErrorKindTransient || kind == ErrorKindRateLimited
}

// VoiceChannelSpec describes a voice channel to create
type VoiceChannelSpec struct {
	GuildID    int64
	CategoryID int64
	Name       string
	UserLimit  int
	Overwrites []entities.PermissionOverwrite
}

// ChannelPatch changes the set fields of a channel. UserLimit 0 means unlimited.
type ChannelPatch struct {
	Name       *string
	UserLimit  *int
	Overwrites []entities.PermissionOverwrite
}

// ChannelSnapshot is the platform's current view of a channel
type ChannelSnapshot struct {
	ID         int64
	GuildID    int64
	Present    bool
	Name       string
	UserLimit  int
	MemberIDs  []int64
	Overwrites []entities.PermissionOverwrite
}

// HasMember checks if userID is connected to the channel
func (s *ChannelSnapshot) HasMember(userID int64) bool {
	for _, id := range s.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether nobody is connected
func (s *ChannelSnapshot) IsEmpty() bool {
	return len(s.MemberIDs) == 0
}

// Overwrite returns the channel's overwrite for targetID, or an empty one of
// targetType when none exists.
func (s *ChannelSnapshot) Overwrite(targetID int64, targetType entities.OverwriteTarget) (entities.PermissionOverwrite, bool) {
	if ow, ok := entities.FindOverwrite(s.Overwrites, targetID); ok {
		return ow, true
	}
	return entities.PermissionOverwrite{TargetID: targetID, TargetType: targetType}, false
}

// PlatformGateway abstracts the chat platform. All methods return *GatewayError on failure.
type PlatformGateway interface {
	// CreateVoiceChannel creates a voice channel and returns its id
	CreateVoiceChannel(ctx context.Context, spec VoiceChannelSpec) (int64, error)

	// CreateCategory creates a channel category and returns its id
	CreateCategory(ctx context.Context, guildID int64, name string) (int64, error)

	// CreateTextChannel creates a text channel under a category and returns its id
	CreateTextChannel(ctx context.Context, guildID, categoryID int64, name string) (int64, error)

	DeleteChannel(ctx context.Context, channelID int64) error
	EditChannel(ctx context.Context, channelID int64, patch ChannelPatch) error

	// MoveMember moves a member into channelID, or disconnects them when channelID is nil
	MoveMember(ctx context.Context, guildID, userID int64, channelID *int64) error

	SetPermissionOverwrite(ctx context.Context, channelID int64, overwrite entities.PermissionOverwrite) error
	ClearPermissionOverwrite(ctx context.Context, channelID, targetID int64) error

	// ResolveChannel returns a snapshot with Present false when the channel no longer exists
	ResolveChannel(ctx context.Context, channelID int64) (*ChannelSnapshot, error)

	// SendPanelMessage posts the control panel and returns the message id
	SendPanelMessage(ctx context.Context, channelID int64, locale string) (int64, error)
	MessageExists(ctx context.Context, channelID, messageID int64) (bool, error)
	DeleteMessage(ctx context.Context, channelID, messageID int64) error
	SendChannelMessage(ctx context.Context, channelID int64, content string) error

	// CreateActivityInvite returns an invite URL launching the application in the voice channel
	CreateActivityInvite(ctx context.Context, channelID, applicationID int64) (string, error)

	// MemberDisplayName returns a NotFound error when the member left the guild
	MemberDisplayName(ctx context.Context, guildID, userID int64) (string, error)

	// MemberVoiceChannel returns the member's current voice channel, or nil
	MemberVoiceChannel(ctx context.Context, guildID, userID int64) (*int64, error)

	// GuildLocale returns the guild's preferred locale
	GuildLocale(ctx context.Context, guildID int64) string
}
