package repository

import (
	"context"
	"testing"

	"chisato/domain/entities"
	"chisato/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomConfigRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoomConfigRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing config is nil", func(t *testing.T) {
		cfg, err := repo.GetConfig(ctx, 3001)
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("put get and replace", func(t *testing.T) {
		cfg := testutil.CreateTestRoomConfig(3002, 100)
		require.NoError(t, repo.PutConfig(ctx, cfg))

		got, err := repo.GetConfig(ctx, 3002)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)

		hub := int64(150)
		cfg.SetLoveHub(&hub)
		cfg.PanelMessageID = 151
		require.NoError(t, repo.PutConfig(ctx, cfg))

		got, err = repo.GetConfig(ctx, 3002)
		require.NoError(t, err)
		assert.True(t, got.IsLoveHub(150))
		assert.Equal(t, int64(151), got.PanelMessageID)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, repo.PutConfig(ctx, testutil.CreateTestRoomConfig(3003, 200)))

		configs, err := repo.ListConfigs(ctx)
		require.NoError(t, err)
		ids := make([]int64, 0, len(configs))
		for _, cfg := range configs {
			ids = append(ids, cfg.GuildID)
		}
		assert.Contains(t, ids, int64(3003))

		require.NoError(t, repo.DeleteConfig(ctx, 3003))
		got, err := repo.GetConfig(ctx, 3003)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRoomPrefsRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoomPrefsRepository(testDB.DB)
	ctx := context.Background()

	name := "my room"
	limit := 5

	t.Run("missing prefs are nil", func(t *testing.T) {
		prefs, err := repo.GetPrefs(ctx, 4001, 1)
		require.NoError(t, err)
		assert.Nil(t, prefs)
	})

	t.Run("patches touch only their field", func(t *testing.T) {
		prefs, err := repo.UpsertPrefs(ctx, 4002, 1, entities.PrefsPatch{RoomName: &name})
		require.NoError(t, err)
		assert.Equal(t, "my room", prefs.NameOr(""))
		assert.Nil(t, prefs.UserLimit)

		prefs, err = repo.UpsertPrefs(ctx, 4002, 1, entities.PrefsPatch{UserLimit: &limit})
		require.NoError(t, err)
		assert.Equal(t, "my room", prefs.NameOr(""))
		assert.Equal(t, 5, prefs.LimitOr(0))

		prefs, err = repo.UpsertPrefs(ctx, 4002, 1, entities.PrefsPatch{ClearRoomName: true})
		require.NoError(t, err)
		assert.Nil(t, prefs.RoomName)
		assert.Equal(t, 5, prefs.LimitOr(0))

		stored, err := repo.GetPrefs(ctx, 4002, 1)
		require.NoError(t, err)
		assert.Equal(t, prefs, stored)
	})

	t.Run("limit of zero is stored", func(t *testing.T) {
		zero := 0
		prefs, err := repo.UpsertPrefs(ctx, 4003, 1, entities.PrefsPatch{UserLimit: &zero})
		require.NoError(t, err)
		require.NotNil(t, prefs.UserLimit)
		assert.Equal(t, 0, *prefs.UserLimit)
	})

	t.Run("out of range limit violates constraint", func(t *testing.T) {
		bad := 100
		_, err := repo.UpsertPrefs(ctx, 4004, 1, entities.PrefsPatch{UserLimit: &bad})
		assert.Error(t, err)
	})
}

func TestPartnerRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPartnerRepository(testDB.DB)
	ctx := context.Background()

	testutil.InsertMarriage(t, testDB.DB, 5001, 1, 2)

	partner, err := repo.GetPartner(ctx, 5001, 2)
	require.NoError(t, err)
	require.NotNil(t, partner)
	assert.Equal(t, int64(1), *partner)

	none, err := repo.GetPartner(ctx, 5001, 3)
	require.NoError(t, err)
	assert.Nil(t, none)

	otherGuild, err := repo.GetPartner(ctx, 5002, 1)
	require.NoError(t, err)
	assert.Nil(t, otherGuild)
}
