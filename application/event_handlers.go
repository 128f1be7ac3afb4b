package application

import (
	"context"
	"fmt"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// LocalHandlerRegistrar accepts in-process subscribers for published events
type LocalHandlerRegistrar interface {
	RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error)
}

// ConfigLoader reads a guild's stored room config
type ConfigLoader interface {
	Config(ctx context.Context, guildID int64) (*entities.GuildRoomConfig, error)
}

// RegisterRoomEventHandlers keeps the panel registry and the room metrics in
// step with committed room events
func RegisterRoomEventHandlers(registrar LocalHandlerRegistrar, registry *PanelRegistry, loader ConfigLoader) {
	registrar.RegisterLocalHandler(events.EventTypeConfigChanged, func(ctx context.Context, event events.Event) error {
		changed, ok := event.(events.RoomConfigChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if !changed.Enabled {
			registry.Unbind(changed.GuildID)
			return nil
		}

		cfg, err := loader.Config(ctx, changed.GuildID)
		if err != nil {
			return fmt.Errorf("failed to reload room config: %w", err)
		}
		if cfg == nil {
			registry.Unbind(changed.GuildID)
			return nil
		}
		registry.Bind(cfg)
		log.WithFields(log.Fields{
			"guild_id":   cfg.GuildID,
			"message_id": cfg.PanelMessageID,
		}).Debug("Rebound control panel")
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypeRoomCreated, func(_ context.Context, event events.Event) error {
		created, ok := event.(events.RoomCreatedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		roomType := observability.RoomTypeRegular
		if created.IsLoveRoom {
			roomType = observability.RoomTypeLove
		}
		observability.GetMetrics().RecordRoomMinted(roomType)
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypeRoomDeleted, func(_ context.Context, event events.Event) error {
		deleted, ok := event.(events.RoomDeletedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		observability.GetMetrics().RecordRoomReclaimed(string(deleted.Reason))
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypeLeaderTransferred, func(_ context.Context, event events.Event) error {
		transferred, ok := event.(events.LeaderTransferredEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		observability.GetMetrics().RecordLeaderTransfer(transferred.Voluntary)
		return nil
	})
}
