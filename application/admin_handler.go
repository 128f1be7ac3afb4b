package application

import (
	"context"
	"fmt"

	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/services"
)

// AdminHandler runs the room administration commands and config lookups
type AdminHandler struct {
	uowFactory UnitOfWorkFactory
	gateway    interfaces.PlatformGateway
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(uowFactory UnitOfWorkFactory, gateway interfaces.PlatformGateway) *AdminHandler {
	return &AdminHandler{
		uowFactory: uowFactory,
		gateway:    gateway,
	}
}

// Setup creates the room channels and stores the guild config
func (h *AdminHandler) Setup(ctx context.Context, req interfaces.SetupRequest) (*entities.GuildRoomConfig, error) {
	var cfg *entities.GuildRoomConfig
	err := h.inTransaction(ctx, req.GuildID, func(svc interfaces.RoomAdminService) error {
		var err error
		cfg, err = svc.Setup(ctx, req)
		return err
	})
	return cfg, err
}

// Disable removes the panel, every live room and the config of a guild
func (h *AdminHandler) Disable(ctx context.Context, guildID int64) error {
	return h.inTransaction(ctx, guildID, func(svc interfaces.RoomAdminService) error {
		return svc.Disable(ctx, guildID)
	})
}

// SetLoveHub creates or removes the couple hub
func (h *AdminHandler) SetLoveHub(ctx context.Context, guildID int64, enabled bool, hubName string) (*entities.GuildRoomConfig, error) {
	var cfg *entities.GuildRoomConfig
	err := h.inTransaction(ctx, guildID, func(svc interfaces.RoomAdminService) error {
		var err error
		cfg, err = svc.SetLoveHub(ctx, guildID, enabled, hubName)
		return err
	})
	return cfg, err
}

// EnsurePanel verifies one guild's panel message, recreating it when deleted
func (h *AdminHandler) EnsurePanel(ctx context.Context, cfg *entities.GuildRoomConfig) (interfaces.PanelStatus, error) {
	var status interfaces.PanelStatus
	err := h.inTransaction(ctx, cfg.GuildID, func(svc interfaces.RoomAdminService) error {
		var err error
		status, err = svc.EnsurePanel(ctx, cfg)
		return err
	})
	return status, err
}

// Config returns the room config of a guild, nil when rooms are not set up
func (h *AdminHandler) Config(ctx context.Context, guildID int64) (*entities.GuildRoomConfig, error) {
	uow := h.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RoomConfigRepository().GetConfig(ctx, guildID)
}

// Configs returns every stored room config
func (h *AdminHandler) Configs(ctx context.Context) ([]*entities.GuildRoomConfig, error) {
	uow := h.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RoomConfigRepository().ListConfigs(ctx)
}

// LiveRooms returns the live rooms of a guild
func (h *AdminHandler) LiveRooms(ctx context.Context, guildID int64) ([]*entities.LiveRoom, error) {
	uow := h.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.LiveRoomRepository().ListLiveRooms(ctx, guildID)
}

// inTransaction runs fn against a fresh admin service and commits when it succeeds
func (h *AdminHandler) inTransaction(ctx context.Context, guildID int64, fn func(interfaces.RoomAdminService) error) error {
	uow := h.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	adminService := services.NewRoomAdminService(
		uow.RoomConfigRepository(),
		uow.LiveRoomRepository(),
		h.gateway,
		uow.EventBus(),
	)
	if err := fn(adminService); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
