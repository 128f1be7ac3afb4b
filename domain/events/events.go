package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoomCreated       EventType = "room_created"
	EventTypeRoomDeleted       EventType = "room_deleted"
	EventTypeLeaderTransferred EventType = "room_leader_transferred"
	EventTypeRoomMutated       EventType = "room_mutated"
	EventTypeConfigChanged     EventType = "room_config_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DeleteReason explains why a live room went away
type DeleteReason string

const (
	DeleteReasonAbandoned    DeleteReason = "abandoned"
	DeleteReasonOrphaned     DeleteReason = "orphaned"
	DeleteReasonEmpty        DeleteReason = "empty"
	DeleteReasonStale        DeleteReason = "stale"
	DeleteReasonDisabled     DeleteReason = "feature_disabled"
	DeleteReasonMintRollback DeleteReason = "mint_rollback"
)

// RoomCreatedEvent is emitted when a room is minted
type RoomCreatedEvent struct {
	GuildID        int64 `json:"guild_id"`
	VoiceChannelID int64 `json:"voice_channel_id"`
	LeaderUserID   int64 `json:"leader_user_id"`
	IsLoveRoom     bool  `json:"is_love_room"`
}

func (e RoomCreatedEvent) Type() EventType {
	return EventTypeRoomCreated
}

// RoomDeletedEvent is emitted when a live room row is removed
type RoomDeletedEvent struct {
	GuildID        int64        `json:"guild_id"`
	VoiceChannelID int64        `json:"voice_channel_id"`
	Reason         DeleteReason `json:"reason"`
}

func (e RoomDeletedEvent) Type() EventType {
	return EventTypeRoomDeleted
}

// LeaderTransferredEvent is emitted when leadership moves to another member
type LeaderTransferredEvent struct {
	GuildID          int64 `json:"guild_id"`
	VoiceChannelID   int64 `json:"voice_channel_id"`
	PreviousLeaderID int64 `json:"previous_leader_id"`
	NewLeaderID      int64 `json:"new_leader_id"`
	Voluntary        bool  `json:"voluntary"` // true for panel transfers, false for migration on leave
}

func (e LeaderTransferredEvent) Type() EventType {
	return EventTypeLeaderTransferred
}

// RoomMutatedEvent is emitted after a successful control panel mutation
type RoomMutatedEvent struct {
	GuildID        int64  `json:"guild_id"`
	VoiceChannelID int64  `json:"voice_channel_id"`
	ActorID        int64  `json:"actor_id"`
	Action         string `json:"action"`
	TargetID       *int64 `json:"target_id,omitempty"`
}

func (e RoomMutatedEvent) Type() EventType {
	return EventTypeRoomMutated
}

// RoomConfigChangedEvent is emitted when the feature is set up, changed or disabled
type RoomConfigChangedEvent struct {
	GuildID int64 `json:"guild_id"`
	Enabled bool  `json:"enabled"`
	LoveHub bool  `json:"love_hub"`
}

func (e RoomConfigChangedEvent) Type() EventType {
	return EventTypeConfigChanged
}
