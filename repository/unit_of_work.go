package repository

import (
	"context"
	"errors"
	"fmt"

	"chisato/application"
	"chisato/database"
	"chisato/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db             *database.DB
	tx             pgx.Tx
	ctx            context.Context
	guildID        int64
	eventPublisher interfaces.EventPublisher
	configRepo     interfaces.RoomConfigRepository
	prefsRepo      interfaces.RoomPrefsRepository
	liveRoomRepo   interfaces.LiveRoomRepository
	partnerRepo    interfaces.PartnerRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateForGuildWithPublisher creates a new UnitOfWork whose EventBus is the given publisher
func (f *unitOfWorkFactory) CreateForGuildWithPublisher(guildID int64, eventPublisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:             f.db,
		guildID:        guildID,
		eventPublisher: eventPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for guild %d: %w", u.guildID, err)
	}

	u.tx = tx
	u.ctx = ctx

	u.configRepo = NewRoomConfigRepositoryWithTx(tx)
	u.prefsRepo = NewRoomPrefsRepositoryWithTx(tx)
	u.liveRoomRepo = NewLiveRoomRepositoryWithTx(tx)
	u.partnerRepo = NewPartnerRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// RoomConfigRepository returns the room config repository for this unit of work
func (u *unitOfWork) RoomConfigRepository() interfaces.RoomConfigRepository {
	if u.configRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.configRepo
}

// RoomPrefsRepository returns the room prefs repository for this unit of work
func (u *unitOfWork) RoomPrefsRepository() interfaces.RoomPrefsRepository {
	if u.prefsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.prefsRepo
}

// LiveRoomRepository returns the live room repository for this unit of work
func (u *unitOfWork) LiveRoomRepository() interfaces.LiveRoomRepository {
	if u.liveRoomRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.liveRoomRepo
}

// PartnerRepository returns the partner repository for this unit of work
func (u *unitOfWork) PartnerRepository() interfaces.PartnerRepository {
	if u.partnerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.partnerRepo
}

// EventBus returns the event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventPublisher == nil {
		panic("unit of work has no event publisher")
	}
	return u.eventPublisher
}
