package services

import (
	"context"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// succession hands a room to one of the members still sitting in it
type succession struct {
	liveRoomRepo   interfaces.LiveRoomRepository
	gateway        interfaces.PlatformGateway
	eventPublisher interfaces.EventPublisher
	localizer      interfaces.Localizer
	random         Random
}

// candidates lists present members other than the outgoing leader
func successionCandidates(snap *interfaces.ChannelSnapshot, outgoing int64) []int64 {
	candidates := make([]int64, 0, len(snap.MemberIDs))
	for _, id := range snap.MemberIDs {
		if id != outgoing {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// handOff picks a random candidate, stores them as leader, moves the leader
// overwrite over and announces the change in the room
func (s succession) handOff(ctx context.Context, room *entities.LiveRoom, snap *interfaces.ChannelSnapshot, candidates []int64) (*interfaces.LeaderChange, error) {
	successor := candidates[s.random.Intn(len(candidates))]
	previous := room.LeaderUserID

	if err := s.liveRoomRepo.UpdateLeader(ctx, room.GuildID, room.VoiceChannelID, successor); err != nil {
		return nil, storeError("update leader", err)
	}

	fields := log.Fields{
		"guild_id":   room.GuildID,
		"channel_id": room.VoiceChannelID,
		"user_id":    successor,
	}

	grant, _ := snap.Overwrite(successor, entities.OverwriteMember)
	if err := s.gateway.SetPermissionOverwrite(ctx, room.VoiceChannelID, grant.With(entities.LeaderPermissions, entities.Allowed)); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to grant leader overwrite")
	}
	if old, ok := snap.Overwrite(previous, entities.OverwriteMember); ok {
		applyOverwriteBestEffort(ctx, s.gateway, room.VoiceChannelID, old.With(entities.LeaderPermissions, entities.Inherit), fields)
	}

	locale := s.gateway.GuildLocale(ctx, room.GuildID)
	announcement := s.localizer.Render("rooms.announce.new_leader", locale, map[string]string{
		"leader": mention(successor),
	})
	if err := s.gateway.SendChannelMessage(ctx, room.VoiceChannelID, announcement); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to announce new leader")
	}

	if err := s.eventPublisher.Publish(events.LeaderTransferredEvent{
		GuildID:          room.GuildID,
		VoiceChannelID:   room.VoiceChannelID,
		PreviousLeaderID: previous,
		NewLeaderID:      successor,
	}); err != nil {
		log.WithError(err).Error("Failed to publish leader transferred event")
	}

	room.LeaderUserID = successor
	log.WithFields(fields).Info("Migrated room leadership")
	return &interfaces.LeaderChange{
		VoiceChannelID: room.VoiceChannelID,
		PreviousLeader: previous,
		NewLeader:      successor,
	}, nil
}
