package services

import (
	"context"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// roomLifecycleService implements the RoomLifecycleService interface
type roomLifecycleService struct {
	configRepo     interfaces.RoomConfigRepository
	prefsRepo      interfaces.RoomPrefsRepository
	liveRoomRepo   interfaces.LiveRoomRepository
	partnerRepo    interfaces.PartnerRepository
	gateway        interfaces.PlatformGateway
	eventPublisher interfaces.EventPublisher
	localizer      interfaces.Localizer
	settings       RoomSettings
}

// NewRoomLifecycleService creates a new room lifecycle service
func NewRoomLifecycleService(
	configRepo interfaces.RoomConfigRepository,
	prefsRepo interfaces.RoomPrefsRepository,
	liveRoomRepo interfaces.LiveRoomRepository,
	partnerRepo interfaces.PartnerRepository,
	gateway interfaces.PlatformGateway,
	eventPublisher interfaces.EventPublisher,
	localizer interfaces.Localizer,
	settings RoomSettings,
) interfaces.RoomLifecycleService {
	return &roomLifecycleService{
		configRepo:     configRepo,
		prefsRepo:      prefsRepo,
		liveRoomRepo:   liveRoomRepo,
		partnerRepo:    partnerRepo,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		localizer:      localizer,
		settings:       settings.withDefaults(),
	}
}

// HandleVoiceStateChange evaluates abandonment, regular mint, couple mint and
// leader migration, in that order, for one transition.
func (s *roomLifecycleService) HandleVoiceStateChange(ctx context.Context, change entities.VoiceStateChange) (*interfaces.LifecycleOutcome, error) {
	outcome := &interfaces.LifecycleOutcome{}
	if !change.ChannelChanged() {
		return outcome, nil
	}

	cfg, err := s.configRepo.GetConfig(ctx, change.GuildID)
	if err != nil {
		return nil, storeError("get room config", err)
	}
	if cfg == nil {
		return outcome, nil
	}

	// The room the member left, with the platform's view of it
	var beforeRoom *entities.LiveRoom
	var beforeSnap *interfaces.ChannelSnapshot
	if change.Before != nil && !cfg.IsHub(*change.Before) {
		beforeRoom, err = s.liveRoomRepo.FindLiveRoomByChannel(ctx, change.GuildID, *change.Before)
		if err != nil {
			return nil, storeError("find room by channel", err)
		}
		if beforeRoom != nil {
			beforeSnap, err = resolveChannel(ctx, s.gateway, beforeRoom.VoiceChannelID)
			if err != nil {
				// Undecidable for now; the orphan sweeper repairs the room later
				log.WithFields(log.Fields{
					"guild_id":   change.GuildID,
					"channel_id": beforeRoom.VoiceChannelID,
					"error_kind": interfaces.KindOf(err),
				}).WithError(err).Warn("Could not resolve left room")
				beforeRoom = nil
			}
		}
	}

	if beforeRoom != nil && (!beforeSnap.Present || beforeSnap.IsEmpty()) {
		if err := s.collect(ctx, beforeRoom, beforeSnap.Present, events.DeleteReasonAbandoned); err != nil {
			return nil, err
		}
		outcome.Collected = append(outcome.Collected, beforeRoom.VoiceChannelID)
		beforeRoom = nil
	}

	// A failed mint is reported only after the left room has a present leader
	var mintErr error
	if change.After != nil {
		switch {
		case *change.After == cfg.HubVoiceID:
			mintErr = s.mintRegular(ctx, cfg, change, outcome)
		case cfg.IsLoveHub(*change.After):
			mintErr = s.mintLove(ctx, cfg, change, outcome)
		}
		if mintErr != nil && entities.ClassOf(mintErr) == entities.ClassFatal {
			return outcome, mintErr
		}
	}

	if beforeRoom != nil && beforeRoom.IsLeader(change.UserID) {
		if candidates := successionCandidates(beforeSnap, change.UserID); len(candidates) > 0 {
			if err := s.migrate(ctx, beforeRoom, beforeSnap, candidates, outcome); err != nil {
				return outcome, err
			}
		}
	}

	return outcome, mintErr
}

// mintRegular creates a room for a member joining the regular hub, or moves
// them back into the room they already lead.
func (s *roomLifecycleService) mintRegular(ctx context.Context, cfg *entities.GuildRoomConfig, change entities.VoiceStateChange, outcome *interfaces.LifecycleOutcome) error {
	existing, err := s.liveRoomRepo.FindLiveRoomByLeader(ctx, change.GuildID, change.UserID)
	if err != nil {
		return storeError("find room by leader", err)
	}
	leavingExisting := existing != nil && change.Before != nil && *change.Before == existing.VoiceChannelID
	if existing != nil && !existing.IsLoveRoom && !leavingExisting {
		snap, err := resolveChannel(ctx, s.gateway, existing.VoiceChannelID)
		if err == nil && snap.Present {
			s.moveBestEffort(ctx, change.GuildID, change.UserID, &existing.VoiceChannelID)
			outcome.Reused = existing
			return nil
		}
		if err == nil {
			// Row outlived its channel
			if err := s.collect(ctx, existing, false, events.DeleteReasonStale); err != nil {
				return err
			}
			outcome.Collected = append(outcome.Collected, existing.VoiceChannelID)
		}
	}

	prefs, err := s.prefsRepo.GetPrefs(ctx, change.GuildID, change.UserID)
	if err != nil {
		return storeError("get room prefs", err)
	}

	spec := interfaces.VoiceChannelSpec{
		GuildID:    change.GuildID,
		CategoryID: cfg.CategoryID,
		Name:       prefs.NameOr(DefaultRoomName(s.settings.Random, change.DisplayName)),
		UserLimit:  prefs.LimitOr(s.settings.DefaultUserLimit),
		Overwrites: []entities.PermissionOverwrite{
			entities.MemberOverwrite(change.UserID).With(entities.LeaderPermissions, entities.Allowed),
		},
	}

	room, err := s.createRoom(ctx, spec, change.UserID, false)
	if err != nil {
		return err
	}
	outcome.Minted = room

	s.moveBestEffort(ctx, change.GuildID, change.UserID, &room.VoiceChannelID)
	return nil
}

// mintLove creates a two-seat room for a member and their partner. Members
// without a resolvable partner are disconnected from the hub.
func (s *roomLifecycleService) mintLove(ctx context.Context, cfg *entities.GuildRoomConfig, change entities.VoiceStateChange, outcome *interfaces.LifecycleOutcome) error {
	fields := log.Fields{
		"guild_id": change.GuildID,
		"user_id":  change.UserID,
	}

	partnerID, err := s.partnerRepo.GetPartner(ctx, change.GuildID, change.UserID)
	if err != nil {
		return storeError("get partner", err)
	}
	if partnerID == nil {
		log.WithFields(fields).Debug("No partner for couple hub, ejecting member")
		s.eject(ctx, change, outcome)
		return nil
	}

	partnerName, err := s.gateway.MemberDisplayName(ctx, change.GuildID, *partnerID)
	if err != nil {
		s.eject(ctx, change, outcome)
		if interfaces.IsNotFound(err) {
			log.WithFields(fields).WithField("partner_id", *partnerID).Debug("Partner left the guild, ejecting member")
			return nil
		}
		return classifyGatewayError("resolve partner", err)
	}

	pairPerms := entities.PermissionConnect | entities.PermissionViewChannel
	spec := interfaces.VoiceChannelSpec{
		GuildID:    change.GuildID,
		CategoryID: cfg.CategoryID,
		Name:       loveRoomName(change.DisplayName, partnerName),
		UserLimit:  2,
		Overwrites: []entities.PermissionOverwrite{
			entities.EveryoneOverwrite(change.GuildID).With(pairPerms, entities.Denied),
			entities.MemberOverwrite(change.UserID).With(pairPerms, entities.Allowed),
			entities.MemberOverwrite(*partnerID).With(pairPerms, entities.Allowed),
		},
	}

	room, err := s.createRoom(ctx, spec, change.UserID, true)
	if err != nil {
		return err
	}
	outcome.Minted = room

	s.moveBestEffort(ctx, change.GuildID, change.UserID, &room.VoiceChannelID)
	return nil
}

// createRoom creates the channel and its row. No row is left behind when the
// channel cannot be created, and no channel when the row cannot be stored.
func (s *roomLifecycleService) createRoom(ctx context.Context, spec interfaces.VoiceChannelSpec, leaderID int64, love bool) (*entities.LiveRoom, error) {
	channelID, err := s.gateway.CreateVoiceChannel(ctx, spec)
	if err != nil {
		return nil, classifyGatewayError("create voice channel", err)
	}

	room := &entities.LiveRoom{
		GuildID:        spec.GuildID,
		VoiceChannelID: channelID,
		LeaderUserID:   leaderID,
		IsLoveRoom:     love,
		CreatedAt:      s.settings.Now(),
	}
	if err := s.liveRoomRepo.CreateLiveRoom(ctx, room); err != nil {
		s.deleteChannelBestEffort(ctx, spec.GuildID, channelID)
		return nil, storeError("create live room", err)
	}

	if err := s.eventPublisher.Publish(events.RoomCreatedEvent{
		GuildID:        room.GuildID,
		VoiceChannelID: room.VoiceChannelID,
		LeaderUserID:   room.LeaderUserID,
		IsLoveRoom:     room.IsLoveRoom,
	}); err != nil {
		log.WithError(err).Error("Failed to publish room created event")
	}

	log.WithFields(log.Fields{
		"guild_id":   room.GuildID,
		"channel_id": room.VoiceChannelID,
		"user_id":    leaderID,
		"love":       love,
	}).Info("Minted room")
	return room, nil
}

// migrate hands leadership to a random member still in the room
func (s *roomLifecycleService) migrate(ctx context.Context, room *entities.LiveRoom, snap *interfaces.ChannelSnapshot, candidates []int64, outcome *interfaces.LifecycleOutcome) error {
	change, err := succession{
		liveRoomRepo:   s.liveRoomRepo,
		gateway:        s.gateway,
		eventPublisher: s.eventPublisher,
		localizer:      s.localizer,
		random:         s.settings.Random,
	}.handOff(ctx, room, snap, candidates)
	if err != nil {
		return err
	}
	outcome.Migrated = change
	return nil
}

// collect removes a room row and, when the channel still exists, the channel
func (s *roomLifecycleService) collect(ctx context.Context, room *entities.LiveRoom, channelPresent bool, reason events.DeleteReason) error {
	if channelPresent {
		s.deleteChannelBestEffort(ctx, room.GuildID, room.VoiceChannelID)
	}
	return deleteRoomRow(ctx, s.liveRoomRepo, s.eventPublisher, room, reason)
}

func (s *roomLifecycleService) eject(ctx context.Context, change entities.VoiceStateChange, outcome *interfaces.LifecycleOutcome) {
	s.moveBestEffort(ctx, change.GuildID, change.UserID, nil)
	outcome.Ejected = true
}

// moveBestEffort moves a member and swallows failures; the member may have left already
func (s *roomLifecycleService) moveBestEffort(ctx context.Context, guildID, userID int64, channelID *int64) {
	if err := s.gateway.MoveMember(ctx, guildID, userID, channelID); err != nil {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"user_id":    userID,
			"error_kind": interfaces.KindOf(err),
		}).WithError(err).Debug("Member move failed")
	}
}

func (s *roomLifecycleService) deleteChannelBestEffort(ctx context.Context, guildID, channelID int64) {
	deleteChannelBestEffort(ctx, s.gateway, guildID, channelID)
}

// deleteChannelBestEffort deletes a channel, ignoring channels that are already gone
func deleteChannelBestEffort(ctx context.Context, gateway interfaces.PlatformGateway, guildID, channelID int64) {
	err := gateway.DeleteChannel(ctx, channelID)
	if err == nil || interfaces.IsNotFound(err) {
		return
	}
	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"channel_id": channelID,
		"error_kind": interfaces.KindOf(err),
	}).WithError(err).Warn("Failed to delete room channel")
}

// deleteRoomRow removes a room row and emits the deletion event
func deleteRoomRow(ctx context.Context, repo interfaces.LiveRoomRepository, publisher interfaces.EventPublisher, room *entities.LiveRoom, reason events.DeleteReason) error {
	deleted, err := repo.DeleteLiveRoom(ctx, room.GuildID, room.VoiceChannelID)
	if err != nil {
		return storeError("delete live room", err)
	}
	if !deleted {
		return nil
	}

	if err := publisher.Publish(events.RoomDeletedEvent{
		GuildID:        room.GuildID,
		VoiceChannelID: room.VoiceChannelID,
		Reason:         reason,
	}); err != nil {
		log.WithError(err).Error("Failed to publish room deleted event")
	}

	log.WithFields(log.Fields{
		"guild_id":   room.GuildID,
		"channel_id": room.VoiceChannelID,
		"reason":     reason,
	}).Info("Removed room")
	return nil
}

// applyOverwriteBestEffort writes an overwrite, clearing it when it became empty
func applyOverwriteBestEffort(ctx context.Context, gateway interfaces.PlatformGateway, channelID int64, ow entities.PermissionOverwrite, fields log.Fields) {
	var err error
	if ow.IsEmpty() {
		err = gateway.ClearPermissionOverwrite(ctx, channelID, ow.TargetID)
	} else {
		err = gateway.SetPermissionOverwrite(ctx, channelID, ow)
	}
	if err != nil && !interfaces.IsNotFound(err) {
		log.WithFields(fields).WithError(err).Warn("Failed to update permission overwrite")
	}
}
