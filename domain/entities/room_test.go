package entities

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestVoiceStateChange_ChannelChanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		change VoiceStateChange
		want   bool
	}{
		{
			name:   "join from nowhere",
			change: VoiceStateChange{After: int64Ptr(1)},
			want:   true,
		},
		{
			name:   "disconnect",
			change: VoiceStateChange{Before: int64Ptr(1)},
			want:   true,
		},
		{
			name:   "move between channels",
			change: VoiceStateChange{Before: int64Ptr(1), After: int64Ptr(2)},
			want:   true,
		},
		{
			name: "self mute only",
			change: VoiceStateChange{
				Before:      int64Ptr(1),
				After:       int64Ptr(1),
				BeforeFlags: VoiceFlags{},
				AfterFlags:  VoiceFlags{SelfMute: true},
			},
			want: false,
		},
		{
			name:   "no channel on either side",
			change: VoiceStateChange{},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.change.ChannelChanged())
		})
	}
}

func TestLiveRoom_Cooldown(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(7 * time.Minute)
	room := &LiveRoom{LeaderUserID: 5}

	assert.False(t, room.CooldownActive(now))
	assert.Zero(t, room.CooldownRemaining(now))

	room.MutationCooldownUntil = &until
	assert.True(t, room.CooldownActive(now))
	assert.Equal(t, 7*time.Minute, room.CooldownRemaining(now))
	assert.False(t, room.CooldownActive(until), "deadline itself is no longer locked")

	assert.True(t, room.IsLeader(5))
	assert.False(t, room.IsLeader(6))
}

func TestGuildRoomConfig_Hubs(t *testing.T) {
	t.Parallel()

	cfg := &GuildRoomConfig{GuildID: 1, HubVoiceID: 100}
	assert.True(t, cfg.IsHub(100))
	assert.False(t, cfg.IsLoveHub(100))
	assert.False(t, cfg.HasLoveHub())

	cfg.SetLoveHub(int64Ptr(200))
	assert.True(t, cfg.IsHub(200))
	assert.True(t, cfg.IsLoveHub(200))
	assert.False(t, cfg.IsHub(300))
}

func TestPrefsPatch_Apply(t *testing.T) {
	t.Parallel()

	name := "study room"
	limit := 4
	prefs := PrefsPatch{RoomName: &name, UserLimit: &limit}.Apply(UserRoomPrefs{GuildID: 1, UserID: 2})
	require.NotNil(t, prefs.RoomName)
	require.NotNil(t, prefs.UserLimit)
	assert.Equal(t, "study room", *prefs.RoomName)
	assert.Equal(t, 4, *prefs.UserLimit)

	cleared := PrefsPatch{ClearRoomName: true}.Apply(prefs)
	assert.Nil(t, cleared.RoomName)
	assert.Equal(t, 4, *cleared.UserLimit, "limit untouched")

	assert.Equal(t, "fallback", (*UserRoomPrefs)(nil).NameOr("fallback"))
	assert.Equal(t, 4, cleared.LimitOr(2))
	assert.Equal(t, 2, (*UserRoomPrefs)(nil).LimitOr(2))
	assert.True(t, PrefsPatch{}.IsEmpty())
}

func TestValidateUserLimit(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{0, 1, 2, 99} {
		assert.NoError(t, ValidateUserLimit(limit), "limit %d", limit)
	}
	for _, limit := range []int{-1, 100} {
		err := ValidateUserLimit(limit)
		assert.True(t, errors.Is(err, ErrInvalidInput), "limit %d", limit)
	}
}

func TestNormalizeRoomName(t *testing.T) {
	t.Parallel()

	name, err := NormalizeRoomName("  lounge  ")
	require.NoError(t, err)
	assert.Equal(t, "lounge", name)

	name, err = NormalizeRoomName("   ")
	require.NoError(t, err)
	assert.Empty(t, name)

	long := make([]rune, MaxRoomNameLength+1)
	for i := range long {
		long[i] = 'я'
	}
	_, err = NormalizeRoomName(string(long))
	assert.True(t, IsUserError(err))
}

func TestRoomError_Taxonomy(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("panel: %w", NewUserError(CodeRateLimited, "wait 5m"))
	assert.True(t, errors.Is(wrapped, ErrRateLimited))
	assert.False(t, errors.Is(wrapped, ErrNotLeader))
	assert.True(t, IsUserError(wrapped))
	assert.Equal(t, CodeRateLimited, CodeOf(wrapped))

	transient := NewTransientError(errors.New("timeout"))
	assert.Equal(t, ClassTransient, ClassOf(transient))
	assert.False(t, IsUserError(transient))

	assert.Equal(t, ClassFatal, ClassOf(errors.New("boom")), "unclassified errors are fatal")
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}

func TestPanelAction_Policy(t *testing.T) {
	t.Parallel()

	for _, a := range PanelActions {
		parsed, ok := ParsePanelAction(string(a))
		require.True(t, ok)
		assert.Equal(t, a, parsed)
	}
	_, ok := ParsePanelAction("explode")
	assert.False(t, ok)

	assert.False(t, ActionInfo.RequiresLeader())
	assert.True(t, ActionInfo.AllowedInLoveRoom())
	assert.False(t, ActionClose.AllowedInLoveRoom())
	assert.True(t, ActionEdit.CooldownGated())
	assert.True(t, ActionLimit.CooldownGated())
	assert.False(t, ActionClose.CooldownGated())
	assert.True(t, ActionReset.NeedsTarget())
	assert.False(t, ActionVision.NeedsTarget())
}
