package entities

import "time"

// LiveRoom is a voice channel minted by the room engine
type LiveRoom struct {
	GuildID               int64      `db:"guild_id"`
	VoiceChannelID        int64      `db:"voice_channel_id"`
	LeaderUserID          int64      `db:"leader_user_id"`
	IsLoveRoom            bool       `db:"is_love_room"`
	MutationCooldownUntil *time.Time `db:"mutation_cooldown_until"` // Nullable - rename/limit lock
	CreatedAt             time.Time  `db:"created_at"`
}

// RoomKey identifies a live room
type RoomKey struct {
	GuildID        int64
	VoiceChannelID int64
}

// Key returns the identifying pair of the room
func (r *LiveRoom) Key() RoomKey {
	return RoomKey{GuildID: r.GuildID, VoiceChannelID: r.VoiceChannelID}
}

// IsLeader checks if userID leads the room
func (r *LiveRoom) IsLeader(userID int64) bool {
	return r.LeaderUserID == userID
}

// CooldownActive reports whether rename/limit is locked at now
func (r *LiveRoom) CooldownActive(now time.Time) bool {
	return r.MutationCooldownUntil != nil && r.MutationCooldownUntil.After(now)
}

// CooldownRemaining returns how long the rename/limit lock still holds
func (r *LiveRoom) CooldownRemaining(now time.Time) time.Duration {
	if !r.CooldownActive(now) {
		return 0
	}
	return r.MutationCooldownUntil.Sub(now)
}
