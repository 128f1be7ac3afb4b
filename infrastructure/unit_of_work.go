package infrastructure

import (
	"context"

	"chisato/application"
	"chisato/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and publishes queued events on commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		u.transactionalPublisher.Discard()
		return err
	}

	// The transaction is durable at this point; event delivery is best effort
	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback discards pending events and rolls back the transaction
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) RoomConfigRepository() interfaces.RoomConfigRepository {
	return u.inner.RoomConfigRepository()
}

func (u *unitOfWork) RoomPrefsRepository() interfaces.RoomPrefsRepository {
	return u.inner.RoomPrefsRepository()
}

func (u *unitOfWork) LiveRoomRepository() interfaces.LiveRoomRepository {
	return u.inner.LiveRoomRepository()
}

func (u *unitOfWork) PartnerRepository() interfaces.PartnerRepository {
	return u.inner.PartnerRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
