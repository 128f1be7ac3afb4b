package entities

// GuildRoomConfig is the per-guild setup of the temporary room feature
type GuildRoomConfig struct {
	GuildID        int64  `db:"guild_id"`
	CategoryID     int64  `db:"category_id"`      // Category new rooms are created in
	HubVoiceID     int64  `db:"hub_voice_id"`     // Joining this channel mints a room
	PanelChannelID int64  `db:"panel_channel_id"` // Text channel holding the control panel
	PanelMessageID int64  `db:"panel_message_id"`
	LoveHubVoiceID *int64 `db:"love_hub_voice_id"` // Nullable - hub for couple rooms
}

// HasLoveHub checks if a couple hub is configured
func (c *GuildRoomConfig) HasLoveHub() bool {
	return c.LoveHubVoiceID != nil && *c.LoveHubVoiceID > 0
}

// IsLoveHub reports whether channelID is the couple hub
func (c *GuildRoomConfig) IsLoveHub(channelID int64) bool {
	return c.HasLoveHub() && *c.LoveHubVoiceID == channelID
}

// IsHub reports whether channelID is either of the hubs
func (c *GuildRoomConfig) IsHub(channelID int64) bool {
	return channelID == c.HubVoiceID || c.IsLoveHub(channelID)
}

// SetLoveHub sets or clears the couple hub
func (c *GuildRoomConfig) SetLoveHub(channelID *int64) {
	c.LoveHubVoiceID = channelID
}
