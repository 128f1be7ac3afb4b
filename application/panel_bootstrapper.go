package application

import (
	"context"
	"time"

	"chisato/domain/entities"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// PanelEnsurer verifies a guild's panel message
type PanelEnsurer interface {
	Configs(ctx context.Context) ([]*entities.GuildRoomConfig, error)
	EnsurePanel(ctx context.Context, cfg *entities.GuildRoomConfig) (interfaces.PanelStatus, error)
}

// PanelBootstrapper binds every guild's control panel after the gateway connects.
// Guilds whose panel cannot be checked yet are retried on later passes.
type PanelBootstrapper struct {
	ensurer    PanelEnsurer
	registry   *PanelRegistry
	retryLimit int
	backoff    time.Duration
}

// NewPanelBootstrapper creates a bootstrapper running at most retryLimit passes
func NewPanelBootstrapper(ensurer PanelEnsurer, registry *PanelRegistry, retryLimit int, backoff time.Duration) *PanelBootstrapper {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &PanelBootstrapper{
		ensurer:    ensurer,
		registry:   registry,
		retryLimit: retryLimit,
		backoff:    backoff,
	}
}

// BootstrapResult summarises a bootstrap run
type BootstrapResult struct {
	Bound     int
	Recreated int
	Skipped   int
	Pending   int // Still failing after the last pass
	Passes    int
}

// Run checks every configured guild, waiting backoff between passes while
// some guilds still fail with a retriable error.
func (b *PanelBootstrapper) Run(ctx context.Context) (*BootstrapResult, error) {
	result := &BootstrapResult{}

	pending, err := b.ensurer.Configs(ctx)
	if err != nil {
		return result, err
	}

	for pass := 1; pass <= b.retryLimit && len(pending) > 0; pass++ {
		if pass > 1 {
			select {
			case <-ctx.Done():
				result.Pending = len(pending)
				return result, ctx.Err()
			case <-time.After(b.backoff):
			}
		}
		result.Passes = pass

		var retry []*entities.GuildRoomConfig
		for _, cfg := range pending {
			fields := log.Fields{
				"guild_id": cfg.GuildID,
				"pass":     pass,
			}

			status, err := b.ensurer.EnsurePanel(ctx, cfg)
			if err != nil {
				if entities.ClassOf(err) == entities.ClassTransient {
					log.WithFields(fields).WithError(err).Warn("Panel check failed, will retry")
					retry = append(retry, cfg)
					continue
				}
				log.WithFields(fields).WithError(err).Error("Panel check failed")
				result.Skipped++
				continue
			}

			switch status {
			case interfaces.PanelBound:
				result.Bound++
				b.registry.Bind(cfg)
			case interfaces.PanelRecreated:
				result.Recreated++
				b.registry.Bind(cfg)
			default:
				result.Skipped++
			}
		}
		pending = retry
	}

	result.Pending = len(pending)
	log.WithFields(log.Fields{
		"bound":     result.Bound,
		"recreated": result.Recreated,
		"skipped":   result.Skipped,
		"pending":   result.Pending,
		"passes":    result.Passes,
	}).Info("Panel bootstrap finished")
	return result, nil
}

// Start runs the bootstrap in the background and returns a function that cancels it
func (b *PanelBootstrapper) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if _, err := b.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Panel bootstrap failed")
		}
	}()
	return cancel
}
