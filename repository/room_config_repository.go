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

// RoomConfigRepository implements the RoomConfigRepository interface
type RoomConfigRepository struct {
	q Queryable
}

// NewRoomConfigRepository creates a new room config repository
func NewRoomConfigRepository(db *database.DB) *RoomConfigRepository {
	return &RoomConfigRepository{q: db.Pool}
}

// NewRoomConfigRepositoryWithTx creates a new room config repository with a transaction
func NewRoomConfigRepositoryWithTx(tx Queryable) *RoomConfigRepository {
	return &RoomConfigRepository{q: tx}
}

const roomConfigColumns = `guild_id, category_id, hub_voice_id, panel_channel_id, panel_message_id, love_hub_voice_id`

// GetConfig returns the guild's room configuration, or nil when rooms are not set up
func (r *RoomConfigRepository) GetConfig(ctx context.Context, guildID int64) (*entities.GuildRoomConfig, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_config", "GetConfig")()

	query := `SELECT ` + roomConfigColumns + ` FROM rooms_guild_settings WHERE guild_id = $1`

	cfg, err := scanRoomConfig(r.q.QueryRow(ctx, query, guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room config for guild %d: %w", guildID, err)
	}
	return cfg, nil
}

// PutConfig inserts or replaces the guild's room configuration
func (r *RoomConfigRepository) PutConfig(ctx context.Context, cfg *entities.GuildRoomConfig) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_config", "PutConfig")()

	query := `
		INSERT INTO rooms_guild_settings (guild_id, category_id, hub_voice_id, panel_channel_id, panel_message_id, love_hub_voice_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			hub_voice_id = EXCLUDED.hub_voice_id,
			panel_channel_id = EXCLUDED.panel_channel_id,
			panel_message_id = EXCLUDED.panel_message_id,
			love_hub_voice_id = EXCLUDED.love_hub_voice_id,
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query,
		cfg.GuildID,
		cfg.CategoryID,
		cfg.HubVoiceID,
		cfg.PanelChannelID,
		cfg.PanelMessageID,
		cfg.LoveHubVoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to put room config for guild %d: %w", cfg.GuildID, err)
	}
	return nil
}

// DeleteConfig removes the guild's room configuration
func (r *RoomConfigRepository) DeleteConfig(ctx context.Context, guildID int64) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_config", "DeleteConfig")()

	if _, err := r.q.Exec(ctx, `DELETE FROM rooms_guild_settings WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("failed to delete room config for guild %d: %w", guildID, err)
	}
	return nil
}

// ListConfigs returns every configured guild, ordered by guild id
func (r *RoomConfigRepository) ListConfigs(ctx context.Context) ([]*entities.GuildRoomConfig, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("room_config", "ListConfigs")()

	query := `SELECT ` + roomConfigColumns + ` FROM rooms_guild_settings ORDER BY guild_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list room configs: %w", err)
	}
	defer rows.Close()

	var configs []*entities.GuildRoomConfig
	for rows.Next() {
		cfg, err := scanRoomConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func scanRoomConfig(row pgx.Row) (*entities.GuildRoomConfig, error) {
	var cfg entities.GuildRoomConfig
	err := row.Scan(
		&cfg.GuildID,
		&cfg.CategoryID,
		&cfg.HubVoiceID,
		&cfg.PanelChannelID,
		&cfg.PanelMessageID,
		&cfg.LoveHubVoiceID,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
