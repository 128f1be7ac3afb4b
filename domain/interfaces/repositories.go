package interfaces

import (
	"context"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"
)

// RoomConfigRepository defines the interface for per-guild room configuration
type RoomConfigRepository interface {
	// GetConfig returns the guild's config, or nil when the feature is not set up
	GetConfig(ctx context.Context, guildID int64) (*entities.GuildRoomConfig, error)

	// PutConfig inserts or replaces the guild's config
	PutConfig(ctx context.Context, cfg *entities.GuildRoomConfig) error

	// DeleteConfig removes the guild's config
	DeleteConfig(ctx context.Context, guildID int64) error

	// ListConfigs returns the configs of every guild
	ListConfigs(ctx context.Context) ([]*entities.GuildRoomConfig, error)
}

// RoomPrefsRepository defines the interface for per-user room preferences
type RoomPrefsRepository interface {
	// GetPrefs returns the member's preferences, or nil when none are saved
	GetPrefs(ctx context.Context, guildID, userID int64) (*entities.UserRoomPrefs, error)

	// UpsertPrefs applies the patch and returns the stored result
	UpsertPrefs(ctx context.Context, guildID, userID int64, patch entities.PrefsPatch) (*entities.UserRoomPrefs, error)
}

// LiveRoomRepository defines the interface for the set of live rooms
type LiveRoomRepository interface {
	// CreateLiveRoom persists a newly minted room
	CreateLiveRoom(ctx context.Context, room *entities.LiveRoom) error

	// DeleteLiveRoom removes a room row. Returns false when no row existed.
	DeleteLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (bool, error)

	// FindLiveRoomByLeader returns the room led by userID, or nil
	FindLiveRoomByLeader(ctx context.Context, guildID, userID int64) (*entities.LiveRoom, error)

	// FindLiveRoomByChannel returns the room backed by voiceChannelID, or nil
	FindLiveRoomByChannel(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error)

	// LockLiveRoom is FindLiveRoomByChannel holding a row lock until the transaction ends
	LockLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error)

	// ListLiveRooms returns every room of a guild
	ListLiveRooms(ctx context.Context, guildID int64) ([]*entities.LiveRoom, error)

	// ListGuildsWithLiveRooms returns the ids of guilds that have at least one room
	ListGuildsWithLiveRooms(ctx context.Context) ([]int64, error)

	// UpdateLeader sets the room's leader
	UpdateLeader(ctx context.Context, guildID, voiceChannelID, newLeaderID int64) error

	// ArmCooldown sets the rename/limit deadline unless one later than now is already set.
	// Returns false when the room is still cooling down.
	ArmCooldown(ctx context.Context, guildID, voiceChannelID int64, now, deadline time.Time) (bool, error)

	// ExpireCooldowns clears every deadline at or before now and returns the affected rooms
	ExpireCooldowns(ctx context.Context, now time.Time) ([]entities.RoomKey, error)

	// ClearCooldown clears the room's deadline unconditionally
	ClearCooldown(ctx context.Context, guildID, voiceChannelID int64) error
}

// PartnerRepository reads the partner pairs used by couple rooms
type PartnerRepository interface {
	// GetPartner returns the partner of userID, or nil when unpaired
	GetPartner(ctx context.Context, guildID, userID int64) (*int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}
