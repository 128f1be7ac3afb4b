package entities

// VoiceFlags are the self-controlled media flags of a voice state
type VoiceFlags struct {
	SelfMute   bool
	SelfDeaf   bool
	SelfVideo  bool
	SelfStream bool
}

// VoiceStateChange is one voice transition of a member
type VoiceStateChange struct {
	GuildID     int64
	UserID      int64
	DisplayName string
	Before      *int64 // Nullable - channel before the update
	After       *int64 // Nullable - channel after the update
	BeforeFlags VoiceFlags
	AfterFlags  VoiceFlags
}

// ChannelChanged reports whether the member physically moved.
// Updates that only toggle media flags keep the same channel on both sides.
func (c VoiceStateChange) ChannelChanged() bool {
	switch {
	case c.Before == nil && c.After == nil:
		return false
	case c.Before == nil || c.After == nil:
		return true
	default:
		return *c.Before != *c.After
	}
}

// Left reports whether the member left before (by disconnecting or moving)
func (c VoiceStateChange) Left() bool {
	return c.Before != nil && c.ChannelChanged()
}

// Joined reports whether the member arrived in after
func (c VoiceStateChange) Joined() bool {
	return c.After != nil && c.ChannelChanged()
}
