package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Render(t *testing.T) {
	t.Parallel()

	catalog, err := Load("en-US")
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		locale string
		vars   map[string]string
		want   string
	}{
		{
			name:   "english with vars",
			key:    "rooms.panel.renamed",
			locale: "en-US",
			vars:   map[string]string{"name": "Lounge"},
			want:   "Room renamed to **Lounge**.",
		},
		{
			name:   "russian with vars",
			key:    "rooms.announce.new_leader",
			locale: "ru",
			vars:   map[string]string{"leader": "<@1>"},
			want:   "<@1> теперь владелец этой комнаты.",
		},
		{
			name:   "unknown locale falls back",
			key:    "errors.not_leader",
			locale: "de",
			want:   "Only the room leader can do that.",
		},
		{
			name:   "region suffix with underscore",
			key:    "errors.not_leader",
			locale: "RU_ru",
			want:   "Это может сделать только владелец комнаты.",
		},
		{
			name:   "missing key renders the key",
			key:    "rooms.panel.nope",
			locale: "en-US",
			want:   "rooms.panel.nope",
		},
		{
			name:   "unused vars are ignored",
			key:    "rooms.panel.closed",
			locale: "en",
			vars:   map[string]string{"target": "x"},
			want:   "Room locked.",
		},
		{
			name:   "quoted yes key",
			key:    "rooms.info.yes",
			locale: "ru",
			want:   "да",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, catalog.Render(tt.key, tt.locale, tt.vars))
		})
	}
}

func TestCatalog_LanguagesShareKeys(t *testing.T) {
	t.Parallel()

	catalog, err := Load("en")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "ru"}, catalog.Languages())
	assert.Equal(t, catalog.Keys("en"), catalog.Keys("ru"))
}

func TestCatalog_CoversErrorCodes(t *testing.T) {
	t.Parallel()

	catalog, err := Load("en")
	require.NoError(t, err)

	for _, code := range []string{
		"not_in_room", "not_leader", "love_room", "self_target", "target_not_present",
		"rate_limited", "missing_permissions", "invalid_input", "not_configured", "no_target",
	} {
		assert.True(t, catalog.Has("errors."+code), code)
	}
}

func TestLoad_UnknownDefaultLocale(t *testing.T) {
	t.Parallel()

	_, err := Load("fr-FR")
	assert.Error(t, err)
}
