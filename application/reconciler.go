package application

import (
	"context"
	"fmt"
	"time"

	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/services"
	"chisato/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Reconciler runs the cooldown expirer and the orphan sweeper
type Reconciler struct {
	uowFactory  UnitOfWorkFactory
	gateway     interfaces.PlatformGateway
	localizer   interfaces.Localizer
	queue       *GuildQueue
	locks       *RoomLocks
	concurrency int
	now         func() time.Time
}

// NewReconciler creates a reconciler sweeping up to concurrency guilds at once
func NewReconciler(uowFactory UnitOfWorkFactory, gateway interfaces.PlatformGateway, localizer interfaces.Localizer, queue *GuildQueue, locks *RoomLocks, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		uowFactory:  uowFactory,
		gateway:     gateway,
		localizer:   localizer,
		queue:       queue,
		locks:       locks,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SweepResult counts what one sweep pass did
type SweepResult struct {
	Guilds   int
	Kept     int
	Skipped  int
	Removed  int
	Migrated int
}

func (r *SweepResult) add(outcome interfaces.SweepOutcome) {
	switch outcome {
	case interfaces.SweepKept:
		r.Kept++
	case interfaces.SweepSkipped:
		r.Skipped++
	case interfaces.SweepMigrated:
		r.Migrated++
	default:
		r.Removed++
	}
}

// ExpireCooldowns clears every elapsed rename/limit lock in one transaction
func (r *Reconciler) ExpireCooldowns(ctx context.Context) ([]entities.RoomKey, error) {
	uow := r.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reconcileService := services.NewReconcileService(uow.LiveRoomRepository(), r.gateway, uow.EventBus(), r.localizer, nil)
	keys, err := reconcileService.ExpireCooldowns(ctx, r.now())
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cooldown expiry: %w", err)
	}

	observability.GetMetrics().RecordCooldownsExpired(len(keys))
	if len(keys) > 0 {
		log.WithField("count", len(keys)).Debug("Expired room cooldowns")
	}
	return keys, nil
}

// SweepOrphans checks every live room against the platform. Guilds are swept
// concurrently; rooms of one guild run on that guild's queue lane.
func (r *Reconciler) SweepOrphans(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	defer func() {
		observability.GetMetrics().RecordSweep(time.Since(start))
	}()

	guildIDs, err := r.guildsWithRooms(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(guildIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, guildID := range guildIDs {
		g.Go(func() error {
			return r.sweepGuild(gctx, guildID, &results[i])
		})
	}
	err = g.Wait()

	total := &SweepResult{Guilds: len(guildIDs)}
	for _, res := range results {
		total.Kept += res.Kept
		total.Skipped += res.Skipped
		total.Removed += res.Removed
		total.Migrated += res.Migrated
	}
	if err != nil {
		return total, err
	}

	if total.Removed > 0 || total.Migrated > 0 {
		log.WithFields(log.Fields{
			"guilds":   total.Guilds,
			"removed":  total.Removed,
			"migrated": total.Migrated,
			"skipped":  total.Skipped,
		}).Info("Orphan sweep repaired rooms")
	}
	return total, nil
}

func (r *Reconciler) guildsWithRooms(ctx context.Context) ([]int64, error) {
	uow := r.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	guildIDs, err := uow.LiveRoomRepository().ListGuildsWithLiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds with live rooms: %w", err)
	}
	return guildIDs, nil
}

func (r *Reconciler) sweepGuild(ctx context.Context, guildID int64, result *SweepResult) error {
	rooms, err := r.liveRooms(ctx, guildID)
	if err != nil {
		return err
	}

	for _, room := range rooms {
		var outcome interfaces.SweepOutcome
		err := r.queue.Do(ctx, guildID, func(ctx context.Context) error {
			var err error
			outcome, err = r.sweepRoom(ctx, room)
			return err
		})
		if err != nil {
			return fmt.Errorf("sweep guild %d: %w", guildID, err)
		}
		result.add(outcome)
	}
	return nil
}

func (r *Reconciler) liveRooms(ctx context.Context, guildID int64) ([]*entities.LiveRoom, error) {
	uow := r.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rooms, err := uow.LiveRoomRepository().ListLiveRooms(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live rooms for guild %d: %w", guildID, err)
	}
	return rooms, nil
}

func (r *Reconciler) sweepRoom(ctx context.Context, room *entities.LiveRoom) (interfaces.SweepOutcome, error) {
	unlock := r.locks.Lock(room.Key())
	defer unlock()

	uow := r.uowFactory.CreateForGuild(room.GuildID)
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reconcileService := services.NewReconcileService(uow.LiveRoomRepository(), r.gateway, uow.EventBus(), r.localizer, nil)
	outcome, err := reconcileService.SweepRoom(ctx, room)
	if err != nil {
		return "", err
	}

	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit sweep: %w", err)
	}
	return outcome, nil
}

// StartCooldownExpirer runs ExpireCooldowns every interval. Returns a cleanup
// function to stop the worker.
func (r *Reconciler) StartCooldownExpirer(ctx context.Context, interval time.Duration) func() {
	return startTicker(ctx, "Cooldown expirer", interval, func() {
		if _, err := r.ExpireCooldowns(ctx); err != nil {
			log.WithError(err).Error("Error expiring room cooldowns")
		}
	})
}

// StartOrphanSweeper runs SweepOrphans every interval. Returns a cleanup
// function to stop the worker.
func (r *Reconciler) StartOrphanSweeper(ctx context.Context, interval time.Duration) func() {
	return startTicker(ctx, "Orphan sweeper", interval, func() {
		if _, err := r.SweepOrphans(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Error sweeping orphaned rooms")
		}
	})
}

func startTicker(ctx context.Context, name string, interval time.Duration, run func()) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", interval).Infof("%s started", name)

		for {
			select {
			case <-ctx.Done():
				log.Infof("%s shutting down (context cancelled)...", name)
				return
			case <-stopChan:
				log.Infof("%s shutting down (stop requested)...", name)
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
