package bot

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// startWorkers starts the periodic room maintenance tasks
func (b *Bot) startWorkers(ctx context.Context) {
	rooms := b.config.Rooms
	b.stopCooldownExpirer = b.reconciler.StartCooldownExpirer(ctx, rooms.CooldownExpireInterval)
	b.stopOrphanSweeper = b.reconciler.StartOrphanSweeper(ctx, rooms.OrphanSweepInterval)
	log.WithFields(log.Fields{
		"cooldown_expire_interval": rooms.CooldownExpireInterval.String(),
		"orphan_sweep_interval":    rooms.OrphanSweepInterval.String(),
	}).Info("Background workers started")
}

// stopWorkers stops the workers and any running panel bootstrap
func (b *Bot) stopWorkers() {
	for _, stop := range []func(){b.stopCooldownExpirer, b.stopOrphanSweeper} {
		if stop != nil {
			stop()
		}
	}

	b.mu.Lock()
	if b.stopBootstrap != nil {
		b.stopBootstrap()
		b.stopBootstrap = nil
	}
	b.mu.Unlock()

	log.Info("Background workers stopped")
}
