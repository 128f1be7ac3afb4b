package application

import (
	"context"
	"fmt"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"
	"chisato/domain/services"
	"chisato/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// discardTimeout bounds the clean-up of a channel whose room was rolled back
const discardTimeout = 15 * time.Second

// VoiceStateHandler applies voice state changes to live rooms, one guild lane at a time
type VoiceStateHandler struct {
	uowFactory UnitOfWorkFactory
	gateway    interfaces.PlatformGateway
	localizer  interfaces.Localizer
	settings   services.RoomSettings
	queue      *GuildQueue
}

// NewVoiceStateHandler creates a new voice state handler
func NewVoiceStateHandler(
	uowFactory UnitOfWorkFactory,
	gateway interfaces.PlatformGateway,
	localizer interfaces.Localizer,
	settings services.RoomSettings,
	queue *GuildQueue,
) *VoiceStateHandler {
	return &VoiceStateHandler{
		uowFactory: uowFactory,
		gateway:    gateway,
		localizer:  localizer,
		settings:   settings,
		queue:      queue,
	}
}

// Submit queues the change behind earlier work for the same guild. Queued
// changes keep ctx's values but not its cancellation, so work accepted before
// shutdown still runs to completion while the queue drains.
func (h *VoiceStateHandler) Submit(ctx context.Context, change entities.VoiceStateChange) error {
	if !change.ChannelChanged() {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	return h.queue.Enqueue(change.GuildID, func() {
		if _, err := h.Handle(ctx, change); err != nil {
			log.WithFields(log.Fields{
				"guild_id": change.GuildID,
				"user_id":  change.UserID,
				"class":    entities.ClassOf(err).String(),
			}).WithError(err).Error("Failed to handle voice state change")
		}
	})
}

// Handle runs one transition in its own transaction. Fatal errors roll back;
// anything else is committed so rooms already collected stay collected.
func (h *VoiceStateHandler) Handle(ctx context.Context, change entities.VoiceStateChange) (*interfaces.LifecycleOutcome, error) {
	metrics := observability.GetMetrics()

	uow := h.uowFactory.CreateForGuild(change.GuildID)
	if err := uow.Begin(ctx); err != nil {
		metrics.RecordVoiceEvent(observability.OutcomeFailed)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lifecycleService := services.NewRoomLifecycleService(
		uow.RoomConfigRepository(),
		uow.RoomPrefsRepository(),
		uow.LiveRoomRepository(),
		uow.PartnerRepository(),
		h.gateway,
		uow.EventBus(),
		h.localizer,
		h.settings,
	)

	outcome, err := lifecycleService.HandleVoiceStateChange(ctx, change)
	if err != nil && entities.ClassOf(err) == entities.ClassFatal {
		h.discardMinted(ctx, outcome)
		metrics.RecordVoiceEvent(observability.OutcomeFailed)
		return outcome, err
	}

	if commitErr := uow.Commit(); commitErr != nil {
		h.discardMinted(ctx, outcome)
		metrics.RecordVoiceEvent(observability.OutcomeFailed)
		return outcome, fmt.Errorf("failed to commit voice state change: %w", commitErr)
	}

	if err != nil {
		log.WithFields(log.Fields{
			"guild_id": change.GuildID,
			"user_id":  change.UserID,
			"class":    entities.ClassOf(err).String(),
		}).WithError(err).Warn("Voice state change partially applied")
		metrics.RecordVoiceEvent(observability.OutcomeRejected)
		return outcome, err
	}

	metrics.RecordVoiceEvent(observability.OutcomeSuccess)
	return outcome, nil
}

// discardMinted removes a channel whose row never became durable
func (h *VoiceStateHandler) discardMinted(ctx context.Context, outcome *interfaces.LifecycleOutcome) {
	if outcome == nil || outcome.Minted == nil {
		return
	}
	room := outcome.Minted
	fields := log.Fields{
		"guild_id":   room.GuildID,
		"channel_id": room.VoiceChannelID,
		"reason":     events.DeleteReasonMintRollback,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := h.gateway.DeleteChannel(ctx, room.VoiceChannelID); err != nil && !interfaces.IsNotFound(err) {
		log.WithFields(fields).WithError(err).Error("Failed to delete channel of rolled back room")
		return
	}
	observability.GetMetrics().RecordRoomReclaimed(string(events.DeleteReasonMintRollback))
	log.WithFields(fields).Warn("Deleted channel of rolled back room")
}
