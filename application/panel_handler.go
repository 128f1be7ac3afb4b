package application

import (
	"context"
	"fmt"

	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/services"
	"chisato/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// PanelHandler runs control panel actions. Actions on the same room are
// serialized in process and by the row lock taken inside the transaction.
type PanelHandler struct {
	uowFactory UnitOfWorkFactory
	gateway    interfaces.PlatformGateway
	settings   services.RoomSettings
	locks      *RoomLocks
}

// NewPanelHandler creates a new panel handler
func NewPanelHandler(uowFactory UnitOfWorkFactory, gateway interfaces.PlatformGateway, settings services.RoomSettings, locks *RoomLocks) *PanelHandler {
	return &PanelHandler{
		uowFactory: uowFactory,
		gateway:    gateway,
		settings:   settings,
		locks:      locks,
	}
}

// Precheck validates the invoker before a modal or member selector is shown
func (h *PanelHandler) Precheck(ctx context.Context, guildID, actorID int64, action entities.PanelAction) (*entities.LiveRoom, error) {
	uow := h.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := h.service(uow).Precheck(ctx, guildID, actorID, action)
	if err != nil {
		h.record(action, err)
		return nil, err
	}
	return room, nil
}

// Execute applies one action to the invoker's room
func (h *PanelHandler) Execute(ctx context.Context, req interfaces.PanelRequest) (*interfaces.PanelResult, error) {
	channelID, err := h.gateway.MemberVoiceChannel(ctx, req.GuildID, req.ActorID)
	if err == nil && channelID != nil {
		unlock := h.locks.Lock(entities.RoomKey{GuildID: req.GuildID, VoiceChannelID: *channelID})
		defer unlock()
	}

	result, err := h.execute(ctx, req)
	h.record(req.Action, err)
	return result, err
}

func (h *PanelHandler) execute(ctx context.Context, req interfaces.PanelRequest) (*interfaces.PanelResult, error) {
	uow := h.uowFactory.CreateForGuild(req.GuildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := h.service(uow).Execute(ctx, req)
	if err != nil && entities.ClassOf(err) == entities.ClassFatal {
		return nil, err
	}

	if commitErr := uow.Commit(); commitErr != nil {
		return nil, fmt.Errorf("failed to commit panel action: %w", commitErr)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"guild_id": req.GuildID,
		"user_id":  req.ActorID,
		"action":   req.Action,
	}).Debug("Panel action applied")
	return result, nil
}

func (h *PanelHandler) service(uow UnitOfWork) interfaces.ControlPanelService {
	return services.NewControlPanelService(
		uow.RoomPrefsRepository(),
		uow.LiveRoomRepository(),
		h.gateway,
		uow.EventBus(),
		h.settings,
	)
}

func (h *PanelHandler) record(action entities.PanelAction, err error) {
	outcome := observability.OutcomeSuccess
	switch {
	case err == nil:
	case entities.IsUserError(err):
		outcome = observability.OutcomeRejected
	default:
		outcome = observability.OutcomeFailed
	}
	observability.GetMetrics().RecordPanelAction(string(action), outcome)
}
