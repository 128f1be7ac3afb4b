package repository

import (
	"context"
	"errors"
	"fmt"

	"chisato/database"
	"chisato/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// PartnerRepository reads the marriages table
type PartnerRepository struct {
	q Queryable
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *database.DB) *PartnerRepository {
	return &PartnerRepository{q: db.Pool}
}

// NewPartnerRepositoryWithTx creates a new partner repository with a transaction
func NewPartnerRepositoryWithTx(tx Queryable) *PartnerRepository {
	return &PartnerRepository{q: tx}
}

// GetPartner returns the member's partner, or nil when unpaired
func (r *PartnerRepository) GetPartner(ctx context.Context, guildID, userID int64) (*int64, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("partner", "GetPartner")()

	var partnerID int64
	err := r.q.QueryRow(ctx,
		`SELECT partner_id FROM marriages WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
	).Scan(&partnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner of user %d in guild %d: %w", userID, guildID, err)
	}
	return &partnerID, nil
}
