package services

import (
	"context"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// roomAdminService implements the RoomAdminService interface
type roomAdminService struct {
	configRepo     interfaces.RoomConfigRepository
	liveRoomRepo   interfaces.LiveRoomRepository
	gateway        interfaces.PlatformGateway
	eventPublisher interfaces.EventPublisher
}

// NewRoomAdminService creates a new room admin service
func NewRoomAdminService(
	configRepo interfaces.RoomConfigRepository,
	liveRoomRepo interfaces.LiveRoomRepository,
	gateway interfaces.PlatformGateway,
	eventPublisher interfaces.EventPublisher,
) interfaces.RoomAdminService {
	return &roomAdminService{
		configRepo:     configRepo,
		liveRoomRepo:   liveRoomRepo,
		gateway:        gateway,
		eventPublisher: eventPublisher,
	}
}

// Setup creates the category, hub voice channel, panel channel and panel
// message, then stores the config. Channels created before a failure are removed.
func (s *roomAdminService) Setup(ctx context.Context, req interfaces.SetupRequest) (*entities.GuildRoomConfig, error) {
	existing, err := s.configRepo.GetConfig(ctx, req.GuildID)
	if err != nil {
		return nil, storeError("get room config", err)
	}
	if existing != nil {
		return nil, entities.NewUserError(entities.CodeInvalidInput, "rooms are already set up in this guild")
	}

	var created []int64
	rollback := func() {
		for i := len(created) - 1; i >= 0; i-- {
			deleteChannelBestEffort(ctx, s.gateway, req.GuildID, created[i])
		}
	}

	categoryID, err := s.gateway.CreateCategory(ctx, req.GuildID, req.CategoryName)
	if err != nil {
		return nil, classifyGatewayError("create category", err)
	}
	created = append(created, categoryID)

	hubID, err := s.gateway.CreateVoiceChannel(ctx, interfaces.VoiceChannelSpec{
		GuildID:    req.GuildID,
		CategoryID: categoryID,
		Name:       req.HubName,
	})
	if err != nil {
		rollback()
		return nil, classifyGatewayError("create hub channel", err)
	}
	created = append(created, hubID)

	panelChannelID, err := s.gateway.CreateTextChannel(ctx, req.GuildID, categoryID, req.PanelName)
	if err != nil {
		rollback()
		return nil, classifyGatewayError("create panel channel", err)
	}
	created = append(created, panelChannelID)

	messageID, err := s.gateway.SendPanelMessage(ctx, panelChannelID, req.Locale)
	if err != nil {
		rollback()
		return nil, classifyGatewayError("send panel message", err)
	}

	cfg := &entities.GuildRoomConfig{
		GuildID:        req.GuildID,
		CategoryID:     categoryID,
		HubVoiceID:     hubID,
		PanelChannelID: panelChannelID,
		PanelMessageID: messageID,
	}
	if err := s.configRepo.PutConfig(ctx, cfg); err != nil {
		rollback()
		return nil, storeError("put room config", err)
	}

	s.publishConfigChanged(cfg, true)
	log.WithFields(log.Fields{
		"guild_id":   req.GuildID,
		"channel_id": hubID,
	}).Info("Rooms set up")
	return cfg, nil
}

// Disable deletes the panel message, every live room and the config
func (s *roomAdminService) Disable(ctx context.Context, guildID int64) error {
	cfg, err := s.configRepo.GetConfig(ctx, guildID)
	if err != nil {
		return storeError("get room config", err)
	}
	if cfg == nil {
		return entities.ErrNotConfigured
	}

	if err := s.gateway.DeleteMessage(ctx, cfg.PanelChannelID, cfg.PanelMessageID); err != nil && !interfaces.IsNotFound(err) {
		return classifyGatewayError("delete panel message", err)
	}

	rooms, err := s.liveRoomRepo.ListLiveRooms(ctx, guildID)
	if err != nil {
		return storeError("list live rooms", err)
	}
	for _, room := range rooms {
		deleteChannelBestEffort(ctx, s.gateway, guildID, room.VoiceChannelID)
		if err := deleteRoomRow(ctx, s.liveRoomRepo, s.eventPublisher, room, events.DeleteReasonDisabled); err != nil {
			return err
		}
	}

	if err := s.configRepo.DeleteConfig(ctx, guildID); err != nil {
		return storeError("delete room config", err)
	}

	s.publishConfigChanged(cfg, false)
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"rooms":    len(rooms),
	}).Info("Rooms disabled")
	return nil
}

// SetLoveHub creates or removes the couple hub. Repeating the current state is a no-op.
func (s *roomAdminService) SetLoveHub(ctx context.Context, guildID int64, enabled bool, hubName string) (*entities.GuildRoomConfig, error) {
	cfg, err := s.configRepo.GetConfig(ctx, guildID)
	if err != nil {
		return nil, storeError("get room config", err)
	}
	if cfg == nil {
		return nil, entities.ErrNotConfigured
	}
	if enabled == cfg.HasLoveHub() {
		return cfg, nil
	}

	if enabled {
		hubID, err := s.gateway.CreateVoiceChannel(ctx, interfaces.VoiceChannelSpec{
			GuildID:    guildID,
			CategoryID: cfg.CategoryID,
			Name:       hubName,
		})
		if err != nil {
			return nil, classifyGatewayError("create couple hub", err)
		}
		cfg.SetLoveHub(&hubID)
	} else {
		deleteChannelBestEffort(ctx, s.gateway, guildID, *cfg.LoveHubVoiceID)
		cfg.SetLoveHub(nil)
	}

	if err := s.configRepo.PutConfig(ctx, cfg); err != nil {
		return nil, storeError("put room config", err)
	}

	s.publishConfigChanged(cfg, true)
	return cfg, nil
}

// EnsurePanel checks that the panel message still exists and posts a new one
// when it was deleted. Missing or inaccessible panel channels are skipped.
func (s *roomAdminService) EnsurePanel(ctx context.Context, cfg *entities.GuildRoomConfig) (interfaces.PanelStatus, error) {
	fields := log.Fields{
		"guild_id":   cfg.GuildID,
		"channel_id": cfg.PanelChannelID,
	}

	exists, err := s.gateway.MessageExists(ctx, cfg.PanelChannelID, cfg.PanelMessageID)
	if err != nil {
		return s.panelFailure("check panel message", err, fields)
	}
	if exists {
		return interfaces.PanelBound, nil
	}

	locale := s.gateway.GuildLocale(ctx, cfg.GuildID)
	messageID, err := s.gateway.SendPanelMessage(ctx, cfg.PanelChannelID, locale)
	if err != nil {
		return s.panelFailure("send panel message", err, fields)
	}

	cfg.PanelMessageID = messageID
	if err := s.configRepo.PutConfig(ctx, cfg); err != nil {
		return "", storeError("put room config", err)
	}

	log.WithFields(fields).WithField("message_id", messageID).Info("Recreated control panel")
	return interfaces.PanelRecreated, nil
}

func (s *roomAdminService) panelFailure(op string, err error, fields log.Fields) (interfaces.PanelStatus, error) {
	switch interfaces.KindOf(err) {
	case interfaces.ErrorKindNotFound, interfaces.ErrorKindForbidden:
		log.WithFields(fields).WithField("error_kind", interfaces.KindOf(err)).Warn("Panel channel unavailable, skipping")
		return interfaces.PanelSkipped, nil
	}
	return "", classifyGatewayError(op, err)
}

func (s *roomAdminService) publishConfigChanged(cfg *entities.GuildRoomConfig, enabled bool) {
	if err := s.eventPublisher.Publish(events.RoomConfigChangedEvent{
		GuildID: cfg.GuildID,
		Enabled: enabled,
		LoveHub: enabled && cfg.HasLoveHub(),
	}); err != nil {
		log.WithError(err).Error("Failed to publish room config changed event")
	}
}
