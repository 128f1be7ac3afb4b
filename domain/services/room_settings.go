package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"chisato/domain/entities"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Random picks indexes for room emojis and successor choice
type Random interface {
	Intn(n int) int
}

type globalRandom struct{}

func (globalRandom) Intn(n int) int { return rand.Intn(n) }

// RoomSettings are the tunables the room services run with
type RoomSettings struct {
	DefaultUserLimit int
	Cooldown         time.Duration
	Random           Random
	Now              func() time.Time
}

func (s RoomSettings) withDefaults() RoomSettings {
	if s.Random == nil {
		s.Random = globalRandom{}
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

var roomEmojis = []string{"🎧", "🎮", "🌙", "🔥", "🌿", "🎲", "🍀", "⭐", "🎵", "☕", "🌊", "🦊"}

const loveRoomEmoji = "💞"

// DefaultRoomName builds the "{emoji} {name}" fallback used when no name is saved
func DefaultRoomName(random Random, displayName string) string {
	return truncateName(fmt.Sprintf("%s %s", roomEmojis[random.Intn(len(roomEmojis))], displayName))
}

func loveRoomName(first, second string) string {
	return truncateName(fmt.Sprintf("%s %s & %s", loveRoomEmoji, first, second))
}

func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= entities.MaxRoomNameLength {
		return name
	}
	return string([]rune(name)[:entities.MaxRoomNameLength])
}

// classifyGatewayError maps a platform failure onto the room error taxonomy
func classifyGatewayError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	switch interfaces.KindOf(err) {
	case interfaces.ErrorKindForbidden:
		return &entities.RoomError{Code: entities.CodeMissingPermissions, Class: entities.ClassUser, Err: wrapped}
	case interfaces.ErrorKindUnauthorized:
		return entities.NewFatalError(entities.CodeUnauthorized, wrapped)
	default:
		// Transient, rate limited, not found and unknown failures are logged and
		// surfaced as a retry-later outcome.
		log.WithFields(log.Fields{
			"op":         op,
			"error_kind": interfaces.KindOf(err),
		}).WithError(err).Warn("Platform call failed")
		return entities.NewTransientError(wrapped)
	}
}

// resolveChannel reads a channel, trying once more after a transient failure
func resolveChannel(ctx context.Context, gateway interfaces.PlatformGateway, channelID int64) (*interfaces.ChannelSnapshot, error) {
	snap, err := gateway.ResolveChannel(ctx, channelID)
	if err == nil || !interfaces.IsRetriable(err) || ctx.Err() != nil {
		return snap, err
	}
	log.WithField("channel_id", channelID).WithError(err).Debug("Retrying channel lookup")
	return gateway.ResolveChannel(ctx, channelID)
}

// storeError marks a repository failure as fatal for the current operation
func storeError(op string, err error) error {
	return entities.NewFatalError(entities.CodeStoreFailure, fmt.Errorf("%s: %w", op, err))
}

func mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}
