package entities

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxRoomNameLength is the platform limit for channel names
	MaxRoomNameLength = 100
	// MaxUserLimit is the largest accepted voice user limit; 0 means unlimited
	MaxUserLimit = 99
)

// UserRoomPrefs are the remembered room settings of a member in a guild
type UserRoomPrefs struct {
	GuildID   int64   `db:"guild_id"`
	UserID    int64   `db:"user_id"`
	RoomName  *string `db:"room_name"`  // Nullable - falls back to "{emoji} {name}"
	UserLimit *int    `db:"user_limit"` // Nullable - falls back to the configured default
}

// NameOr returns the saved room name or the fallback
func (p *UserRoomPrefs) NameOr(fallback string) string {
	if p == nil || p.RoomName == nil || *p.RoomName == "" {
		return fallback
	}
	return *p.RoomName
}

// LimitOr returns the saved user limit or the fallback
func (p *UserRoomPrefs) LimitOr(fallback int) int {
	if p == nil || p.UserLimit == nil {
		return fallback
	}
	return *p.UserLimit
}

// PrefsPatch changes fields of UserRoomPrefs independently.
// A Clear flag wins over a value for the same field.
type PrefsPatch struct {
	RoomName       *string
	ClearRoomName  bool
	UserLimit      *int
	ClearUserLimit bool
}

// IsEmpty reports whether the patch changes nothing
func (p PrefsPatch) IsEmpty() bool {
	return p.RoomName == nil && !p.ClearRoomName && p.UserLimit == nil && !p.ClearUserLimit
}

// Apply returns prefs with the patch applied
func (p PrefsPatch) Apply(prefs UserRoomPrefs) UserRoomPrefs {
	switch {
	case p.ClearRoomName:
		prefs.RoomName = nil
	case p.RoomName != nil:
		name := *p.RoomName
		prefs.RoomName = &name
	}
	switch {
	case p.ClearUserLimit:
		prefs.UserLimit = nil
	case p.UserLimit != nil:
		limit := *p.UserLimit
		prefs.UserLimit = &limit
	}
	return prefs
}

// NormalizeRoomName trims the input and checks it against the platform limits.
// An empty result means "restore the default name".
func NormalizeRoomName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", NewUserError(CodeInvalidInput, fmt.Sprintf("room name longer than %d characters", MaxRoomNameLength))
	}
	return name, nil
}

// ValidateUserLimit checks a requested limit against 0..MaxUserLimit
func ValidateUserLimit(limit int) error {
	if limit < 0 || limit > MaxUserLimit {
		return NewUserError(CodeInvalidInput, fmt.Sprintf("user limit must be within 0..%d, got %d", MaxUserLimit, limit))
	}
	return nil
}
