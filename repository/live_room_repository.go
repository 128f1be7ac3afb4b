package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chisato/database"
	"chisato/domain/entities"
	"chisato/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// LiveRoomRepository implements the LiveRoomRepository interface
type LiveRoomRepository struct {
	q Queryable
}

// NewLiveRoomRepository creates a new live room repository
func NewLiveRoomRepository(db *database.DB) *LiveRoomRepository {
	return &LiveRoomRepository{q: db.Pool}
}

// NewLiveRoomRepositoryWithTx creates a new live room repository with a transaction
func NewLiveRoomRepositoryWithTx(tx Queryable) *LiveRoomRepository {
	return &LiveRoomRepository{q: tx}
}

const liveRoomColumns = `guild_id, voice_channel_id, leader_user_id, is_love_room, mutation_cooldown_until, created_at`

// CreateLiveRoom inserts a new room row
func (r *LiveRoomRepository) CreateLiveRoom(ctx context.Context, room *entities.LiveRoom) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "CreateLiveRoom")()

	query := `
		INSERT INTO rooms_temp_data (guild_id, voice_channel_id, leader_user_id, is_love_room)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		room.GuildID,
		room.VoiceChannelID,
		room.LeaderUserID,
		room.IsLoveRoom,
	).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create live room %d: %w", room.VoiceChannelID, err)
	}
	return nil
}

// DeleteLiveRoom removes the room row and reports whether one existed
func (r *LiveRoomRepository) DeleteLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (bool, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "DeleteLiveRoom")()

	tag, err := r.q.Exec(ctx,
		`DELETE FROM rooms_temp_data WHERE guild_id = $1 AND voice_channel_id = $2`,
		guildID, voiceChannelID)
	if err != nil {
		return false, fmt.Errorf("failed to delete live room %d: %w", voiceChannelID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindLiveRoomByLeader returns the member's oldest regular room, falling back to a couple room
func (r *LiveRoomRepository) FindLiveRoomByLeader(ctx context.Context, guildID, userID int64) (*entities.LiveRoom, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "FindLiveRoomByLeader")()

	query := `
		SELECT ` + liveRoomColumns + `
		FROM rooms_temp_data
		WHERE guild_id = $1 AND leader_user_id = $2
		ORDER BY is_love_room ASC, created_at ASC
		LIMIT 1
	`

	return r.findOne(ctx, query, guildID, userID)
}

// FindLiveRoomByChannel returns the room backed by the voice channel
func (r *LiveRoomRepository) FindLiveRoomByChannel(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "FindLiveRoomByChannel")()

	query := `
		SELECT ` + liveRoomColumns + `
		FROM rooms_temp_data
		WHERE guild_id = $1 AND voice_channel_id = $2
	`

	return r.findOne(ctx, query, guildID, voiceChannelID)
}

// LockLiveRoom returns the room and holds its row lock until the transaction ends
func (r *LiveRoomRepository) LockLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "LockLiveRoom")()

	query := `
		SELECT ` + liveRoomColumns + `
		FROM rooms_temp_data
		WHERE guild_id = $1 AND voice_channel_id = $2
		FOR UPDATE
	`

	return r.findOne(ctx, query, guildID, voiceChannelID)
}

// ListLiveRooms returns the rooms of a guild, oldest first
func (r *LiveRoomRepository) ListLiveRooms(ctx context.Context, guildID int64) ([]*entities.LiveRoom, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "ListLiveRooms")()

	query := `
		SELECT ` + liveRoomColumns + `
		FROM rooms_temp_data
		WHERE guild_id = $1
		ORDER BY created_at ASC, voice_channel_id ASC
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live rooms for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var rooms []*entities.LiveRoom
	for rows.Next() {
		room, err := scanLiveRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan live room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// ListGuildsWithLiveRooms returns the distinct guilds holding at least one room
func (r *LiveRoomRepository) ListGuildsWithLiveRooms(ctx context.Context) ([]int64, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "ListGuildsWithLiveRooms")()

	rows, err := r.q.Query(ctx, `SELECT DISTINCT guild_id FROM rooms_temp_data ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds with live rooms: %w", err)
	}

	guildIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan guild ids: %w", err)
	}
	return guildIDs, nil
}

// UpdateLeader changes the room's leader
func (r *LiveRoomRepository) UpdateLeader(ctx context.Context, guildID, voiceChannelID, newLeaderID int64) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "UpdateLeader")()

	tag, err := r.q.Exec(ctx, `
		UPDATE rooms_temp_data
		SET leader_user_id = $3
		WHERE guild_id = $1 AND voice_channel_id = $2
	`, guildID, voiceChannelID, newLeaderID)
	if err != nil {
		return fmt.Errorf("failed to update leader of room %d: %w", voiceChannelID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("live room %d not found", voiceChannelID)
	}
	return nil
}

// ArmCooldown sets the deadline only when no deadline later than now is held,
// so two concurrent renames cannot both pass
func (r *LiveRoomRepository) ArmCooldown(ctx context.Context, guildID, voiceChannelID int64, now, deadline time.Time) (bool, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "ArmCooldown")()

	tag, err := r.q.Exec(ctx, `
		UPDATE rooms_temp_data
		SET mutation_cooldown_until = $4
		WHERE guild_id = $1 AND voice_channel_id = $2
		  AND (mutation_cooldown_until IS NULL OR mutation_cooldown_until <= $3)
	`, guildID, voiceChannelID, now, deadline)
	if err != nil {
		return false, fmt.Errorf("failed to arm cooldown of room %d: %w", voiceChannelID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireCooldowns clears every elapsed deadline
func (r *LiveRoomRepository) ExpireCooldowns(ctx context.Context, now time.Time) ([]entities.RoomKey, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "ExpireCooldowns")()

	rows, err := r.q.Query(ctx, `
		UPDATE rooms_temp_data
		SET mutation_cooldown_until = NULL
		WHERE mutation_cooldown_until IS NOT NULL AND mutation_cooldown_until <= $1
		RETURNING guild_id, voice_channel_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire cooldowns: %w", err)
	}

	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.RoomKey, error) {
		var key entities.RoomKey
		err := row.Scan(&key.GuildID, &key.VoiceChannelID)
		return key, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired cooldowns: %w", err)
	}
	return keys, nil
}

// ClearCooldown drops the room's deadline
func (r *LiveRoomRepository) ClearCooldown(ctx context.Context, guildID, voiceChannelID int64) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("live_room", "ClearCooldown")()

	_, err := r.q.Exec(ctx, `
		UPDATE rooms_temp_data
		SET mutation_cooldown_until = NULL
		WHERE guild_id = $1 AND voice_channel_id = $2
	`, guildID, voiceChannelID)
	if err != nil {
		return fmt.Errorf("failed to clear cooldown of room %d: %w", voiceChannelID, err)
	}
	return nil
}

func (r *LiveRoomRepository) findOne(ctx context.Context, query string, args ...any) (*entities.LiveRoom, error) {
	room, err := scanLiveRoom(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live room: %w", err)
	}
	return room, nil
}

func scanLiveRoom(row pgx.Row) (*entities.LiveRoom, error) {
	var room entities.LiveRoom
	err := row.Scan(
		&room.GuildID,
		&room.VoiceChannelID,
		&room.LeaderUserID,
		&room.IsLoveRoom,
		&room.MutationCooldownUntil,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
