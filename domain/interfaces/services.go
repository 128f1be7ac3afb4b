package interfaces

import (
	"context"
	"time"

	"chisato/domain/entities"
)

// Localizer renders a message template for a locale
type Localizer interface {
	// Render fills {name} placeholders of the template stored under key
	Render(key, locale string, vars map[string]string) string
}

// LeaderChange records a leadership move
type LeaderChange struct {
	VoiceChannelID int64
	PreviousLeader int64
	NewLeader      int64
}

// LifecycleOutcome describes what a voice state change did
type LifecycleOutcome struct {
	Collected []int64            // Channels whose rooms were removed
	Minted    *entities.LiveRoom // Newly created room
	Reused    *entities.LiveRoom // Existing room the member was moved back into
	Ejected   bool               // Member was disconnected from the couple hub
	Migrated  *LeaderChange
}

// RoomLifecycleService reacts to voice state changes
type RoomLifecycleService interface {
	// HandleVoiceStateChange collects, mints and re-homes rooms for one transition
	HandleVoiceStateChange(ctx context.Context, change entities.VoiceStateChange) (*LifecycleOutcome, error)
}

// PanelRequest is one control panel interaction
type PanelRequest struct {
	GuildID     int64
	ActorID     int64
	Action      entities.PanelAction
	TargetID    *int64 // Selected member for targeted actions
	Text        string // Modal input for edit and limit
	ActivityKey string // Selected activity
	Locale      string
}

// RoomInfo is the read-only state rendered by the info action
type RoomInfo struct {
	Room              entities.LiveRoom
	ChannelName       string
	LeaderName        string
	MemberCount       int
	UserLimit         int
	Closed            bool
	Hidden            bool
	CooldownRemaining time.Duration
}

// PanelResult is the user-visible outcome of a panel action
type PanelResult struct {
	Action     entities.PanelAction
	MessageKey string // Localization key of the reply
	Vars       map[string]string
	InviteURL  string
	Info       *RoomInfo
}

// ControlPanelService validates and applies control panel actions
type ControlPanelService interface {
	// Precheck evaluates the common preconditions before a modal or selector is shown
	Precheck(ctx context.Context, guildID, actorID int64, action entities.PanelAction) (*entities.LiveRoom, error)

	// Execute applies the action to the invoker's room
	Execute(ctx context.Context, req PanelRequest) (*PanelResult, error)
}

// SweepOutcome is what the orphan sweeper did with one room
type SweepOutcome string

const (
	SweepKept           SweepOutcome = "kept"
	SweepSkipped        SweepOutcome = "skipped"
	SweepRemovedMissing SweepOutcome = "removed_missing"
	SweepRemovedEmpty   SweepOutcome = "removed_empty"
	SweepMigrated       SweepOutcome = "migrated"
)

// ReconcileService repairs divergence between stored rooms and the platform
type ReconcileService interface {
	// ExpireCooldowns clears elapsed rename/limit locks
	ExpireCooldowns(ctx context.Context, now time.Time) ([]entities.RoomKey, error)

	// SweepRoom checks one room against the platform and removes it when orphaned
	SweepRoom(ctx context.Context, room *entities.LiveRoom) (SweepOutcome, error)
}

// PanelStatus is what the bootstrapper found for a guild's panel
type PanelStatus string

const (
	PanelBound     PanelStatus = "bound"
	PanelRecreated PanelStatus = "recreated"
	PanelSkipped   PanelStatus = "skipped"
)

// SetupRequest names the channels created by the setup command
type SetupRequest struct {
	GuildID      int64
	Locale       string
	CategoryName string
	HubName      string
	PanelName    string
}

// RoomAdminService manages the per-guild room setup
type RoomAdminService interface {
	// Setup creates the category, hub and panel and stores the config
	Setup(ctx context.Context, req SetupRequest) (*entities.GuildRoomConfig, error)

	// Disable deletes the panel message, every live room and the config
	Disable(ctx context.Context, guildID int64) error

	// SetLoveHub creates or removes the couple hub
	SetLoveHub(ctx context.Context, guildID int64, enabled bool, hubName string) (*entities.GuildRoomConfig, error)

	// EnsurePanel verifies the panel message of cfg and recreates it when missing
	EnsurePanel(ctx context.Context, cfg *entities.GuildRoomConfig) (PanelStatus, error)
}
