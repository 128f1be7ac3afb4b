package bot

import (
	"testing"

	"chisato/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestVoiceStateChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		update      *discordgo.VoiceStateUpdate
		wantBefore  *int64
		wantAfter   *int64
		wantChanged bool
	}{
		{
			name: "join",
			update: &discordgo.VoiceStateUpdate{
				VoiceState: &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30"},
			},
			wantAfter:   int64Ptr(30),
			wantChanged: true,
		},
		{
			name: "leave",
			update: &discordgo.VoiceStateUpdate{
				VoiceState:   &discordgo.VoiceState{GuildID: "1", UserID: "2"},
				BeforeUpdate: &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30"},
			},
			wantBefore:  int64Ptr(30),
			wantChanged: true,
		},
		{
			name: "mute toggle keeps channel",
			update: &discordgo.VoiceStateUpdate{
				VoiceState:   &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30", SelfMute: true},
				BeforeUpdate: &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30"},
			},
			wantBefore: int64Ptr(30),
			wantAfter:  int64Ptr(30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			change, err := voiceStateChange(tt.update)
			require.NoError(t, err)
			assert.Equal(t, int64(1), change.GuildID)
			assert.Equal(t, int64(2), change.UserID)
			assert.Equal(t, tt.wantBefore, change.Before)
			assert.Equal(t, tt.wantAfter, change.After)
			assert.Equal(t, tt.wantChanged, change.ChannelChanged())
		})
	}
}

func TestVoiceStateChange_Flags(t *testing.T) {
	t.Parallel()

	change, err := voiceStateChange(&discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30", SelfMute: true, SelfStream: true},
		BeforeUpdate: &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "30", SelfDeaf: true},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.VoiceFlags{SelfMute: true, SelfStream: true}, change.AfterFlags)
	assert.Equal(t, entities.VoiceFlags{SelfDeaf: true}, change.BeforeFlags)
}

func TestVoiceStateChange_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *discordgo.VoiceStateUpdate
	}{
		{"no state", &discordgo.VoiceStateUpdate{}},
		{"bad guild", &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{GuildID: "x", UserID: "2"}}},
		{"bad channel", &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{GuildID: "1", UserID: "2", ChannelID: "y"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := voiceStateChange(tt.update)
			assert.Error(t, err)
		})
	}
}
