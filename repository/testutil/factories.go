package testutil

import (
	"context"
	"testing"

	"chisato/database"
	"chisato/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestRoomConfig creates a room config with consecutive channel ids starting at base
func CreateTestRoomConfig(guildID, base int64) *entities.GuildRoomConfig {
	return &entities.GuildRoomConfig{
		GuildID:        guildID,
		CategoryID:     base,
		HubVoiceID:     base + 1,
		PanelChannelID: base + 2,
		PanelMessageID: base + 3,
	}
}

// CreateTestLiveRoom creates a regular room led by leaderID
func CreateTestLiveRoom(guildID, voiceChannelID, leaderID int64) *entities.LiveRoom {
	return &entities.LiveRoom{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		LeaderUserID:   leaderID,
	}
}

// InsertMarriage stores a partner pair in both directions
func InsertMarriage(t *testing.T, db *database.DB, guildID, userID, partnerID int64) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO marriages (guild_id, user_id, partner_id)
		VALUES ($1, $2, $3), ($1, $3, $2)
	`, guildID, userID, partnerID)
	require.NoError(t, err)
}
