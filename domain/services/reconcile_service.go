package services

import (
	"context"
	"fmt"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// reconcileService implements the ReconcileService interface
type reconcileService struct {
	liveRoomRepo   interfaces.LiveRoomRepository
	gateway        interfaces.PlatformGateway
	eventPublisher interfaces.EventPublisher
	localizer      interfaces.Localizer
	random         Random
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	liveRoomRepo interfaces.LiveRoomRepository,
	gateway interfaces.PlatformGateway,
	eventPublisher interfaces.EventPublisher,
	localizer interfaces.Localizer,
	random Random,
) interfaces.ReconcileService {
	if random == nil {
		random = globalRandom{}
	}
	return &reconcileService{
		liveRoomRepo:   liveRoomRepo,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		localizer:      localizer,
		random:         random,
	}
}

// ExpireCooldowns clears elapsed rename/limit locks
func (s *reconcileService) ExpireCooldowns(ctx context.Context, now time.Time) ([]entities.RoomKey, error) {
	keys, err := s.liveRoomRepo.ExpireCooldowns(ctx, now)
	if err != nil {
		return nil, storeError("expire cooldowns", err)
	}
	return keys, nil
}

// SweepRoom removes the room when its channel is gone or empty, and hands it
// to a present member when its leader left the guild. Platform failures skip
// the room for this pass.
func (s *reconcileService) SweepRoom(ctx context.Context, room *entities.LiveRoom) (interfaces.SweepOutcome, error) {
	fields := log.Fields{
		"guild_id":   room.GuildID,
		"channel_id": room.VoiceChannelID,
	}

	snap, err := resolveChannel(ctx, s.gateway, room.VoiceChannelID)
	if err != nil {
		return s.skip(err, fields)
	}

	if !snap.Present {
		log.WithFields(fields).WithError(entities.NewInvariantError(entities.CodeOrphanedRoom, "channel missing")).Info("Repairing orphaned room")
		if err := deleteRoomRow(ctx, s.liveRoomRepo, s.eventPublisher, room, events.DeleteReasonOrphaned); err != nil {
			return "", err
		}
		return interfaces.SweepRemovedMissing, nil
	}

	if snap.IsEmpty() {
		deleteChannelBestEffort(ctx, s.gateway, room.GuildID, room.VoiceChannelID)
		if err := deleteRoomRow(ctx, s.liveRoomRepo, s.eventPublisher, room, events.DeleteReasonEmpty); err != nil {
			return "", err
		}
		return interfaces.SweepRemovedEmpty, nil
	}

	if _, err := s.gateway.MemberDisplayName(ctx, room.GuildID, room.LeaderUserID); err != nil {
		if !interfaces.IsNotFound(err) {
			return s.skip(err, fields)
		}
		log.WithFields(fields).WithField("user_id", room.LeaderUserID).
			WithError(entities.NewInvariantError(entities.CodeOrphanedRoom, "leader left guild")).
			Info("Handing room of departed leader to a present member")
		_, err := succession{
			liveRoomRepo:   s.liveRoomRepo,
			gateway:        s.gateway,
			eventPublisher: s.eventPublisher,
			localizer:      s.localizer,
			random:         s.random,
		}.handOff(ctx, room, snap, successionCandidates(snap, room.LeaderUserID))
		if err != nil {
			return "", err
		}
		return interfaces.SweepMigrated, nil
	}

	return interfaces.SweepKept, nil
}

func (s *reconcileService) skip(err error, fields log.Fields) (interfaces.SweepOutcome, error) {
	if interfaces.KindOf(err) == interfaces.ErrorKindUnauthorized {
		return "", entities.NewFatalError(entities.CodeUnauthorized, fmt.Errorf("sweep room: %w", err))
	}
	log.WithFields(fields).WithField("error_kind", interfaces.KindOf(err)).WithError(err).Debug("Skipping room this pass")
	return interfaces.SweepSkipped, nil
}
