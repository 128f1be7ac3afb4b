package repository

import (
	"context"
	"errors"
	"fmt"

	"chisato/database"
	"chisato/domain/entities"
	"chisato/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// RoomPrefsRepository implements the RoomPrefsRepository interface
type RoomPrefsRepository struct {
	q Queryable
}

// NewRoomPrefsRepository creates a new room prefs repository
func NewRoomPrefsRepository(db *database.DB) *RoomPrefsRepository {
	return &RoomPrefsRepository{q: db.Pool}
}

// NewRoomPrefsRepositoryWithTx creates a new room prefs repository with a transaction
func NewRoomPrefsRepositoryWithTx(tx Queryable) *RoomPrefsRepository {
	return &RoomPrefsRepository{q: tx}
}

// GetPrefs returns the member's saved room settings, or nil when none exist
func (r *RoomPrefsRepository) GetPrefs(ctx context.Context, guildID, userID int64) (*entities.UserRoomPrefs, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_prefs", "GetPrefs")()

	query := `
		SELECT guild_id, user_id, room_name, user_limit
		FROM rooms_users_setting
		WHERE guild_id = $1 AND user_id = $2
	`

	var prefs entities.UserRoomPrefs
	err := r.q.QueryRow(ctx, query, guildID, userID).Scan(
		&prefs.GuildID,
		&prefs.UserID,
		&prefs.RoomName,
		&prefs.UserLimit,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room prefs for user %d in guild %d: %w", userID, guildID, err)
	}
	return &prefs, nil
}

// UpsertPrefs applies the patch in a single statement so concurrent patches
// touching different fields do not overwrite each other
func (r *RoomPrefsRepository) UpsertPrefs(ctx context.Context, guildID, userID int64, patch entities.PrefsPatch) (*entities.UserRoomPrefs, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_prefs", "UpsertPrefs")()

	fresh := patch.Apply(entities.UserRoomPrefs{GuildID: guildID, UserID: userID})

	query := `
		INSERT INTO rooms_users_setting (guild_id, user_id, room_name, user_limit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			room_name = CASE
				WHEN $5 THEN NULL
				WHEN $3::VARCHAR IS NOT NULL THEN $3::VARCHAR
				ELSE rooms_users_setting.room_name
			END,
			user_limit = CASE
				WHEN $6 THEN NULL
				WHEN $4::INT IS NOT NULL THEN $4::INT
				ELSE rooms_users_setting.user_limit
			END,
			updated_at = NOW()
		RETURNING guild_id, user_id, room_name, user_limit
	`

	var prefs entities.UserRoomPrefs
	err := r.q.QueryRow(ctx, query,
		guildID,
		userID,
		fresh.RoomName,
		fresh.UserLimit,
		patch.ClearRoomName,
		patch.ClearUserLimit,
	).Scan(
		&prefs.GuildID,
		&prefs.UserID,
		&prefs.RoomName,
		&prefs.UserLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert room prefs for user %d in guild %d: %w", userID, guildID, err)
	}
	return &prefs, nil
}
