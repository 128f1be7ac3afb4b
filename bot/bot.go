package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"chisato/application"
	"chisato/bot/features/rooms"
	"chisato/config"
	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token        string
	DebugAPIPort int
	Rooms        config.RoomsConfig
}

// Dependencies are the shared components the bot wires into its handlers
type Dependencies struct {
	UnitOfWorkFactory application.UnitOfWorkFactory
	HandlerRegistrar  application.LocalHandlerRegistrar
	Localizer         interfaces.Localizer
	Queue             *application.GuildQueue
	Registry          *application.PanelRegistry
}

// Bot manages the Discord session and the voice room feature
type Bot struct {
	// Core components
	config   Config
	session  *discordgo.Session
	gateway  *PlatformGateway
	registry *application.PanelRegistry
	queue    *application.GuildQueue

	// Application handlers
	voice        *application.VoiceStateHandler
	panels       *application.PanelHandler
	admin        *application.AdminHandler
	reconciler   *application.Reconciler
	bootstrapper *application.PanelBootstrapper

	// Feature modules
	rooms *rooms.Feature

	ctx    context.Context
	cancel context.CancelFunc

	// Worker cleanup functions
	mu                  sync.Mutex
	stopBootstrap       func()
	stopCooldownExpirer func()
	stopOrphanSweeper   func()
	debugServer         *http.Server
}

// New creates a bot, wires the room handlers and opens the gateway connection
func New(cfg Config, deps Dependencies) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers
	// Voice events must reach the guild queue in arrival order
	dg.SyncEvents = true
	dg.StateEnabled = true

	gateway := NewPlatformGateway(dg, deps.Localizer, cfg.Rooms.GatewayTimeout)
	settings := services.RoomSettings{
		DefaultUserLimit: cfg.Rooms.DefaultUserLimit,
		Cooldown:         cfg.Rooms.Cooldown(),
	}
	locks := application.NewRoomLocks()

	ctx, cancel := context.WithCancel(context.Background())
	bot := &Bot{
		config:     cfg,
		session:    dg,
		gateway:    gateway,
		registry:   deps.Registry,
		queue:      deps.Queue,
		voice:      application.NewVoiceStateHandler(deps.UnitOfWorkFactory, gateway, deps.Localizer, settings, deps.Queue),
		panels:     application.NewPanelHandler(deps.UnitOfWorkFactory, gateway, settings, locks),
		admin:      application.NewAdminHandler(deps.UnitOfWorkFactory, gateway),
		reconciler: application.NewReconciler(deps.UnitOfWorkFactory, gateway, deps.Localizer, deps.Queue, locks, cfg.Rooms.SweepConcurrency),
		ctx:        ctx,
		cancel:     cancel,
	}
	bot.bootstrapper = application.NewPanelBootstrapper(bot.admin, deps.Registry, cfg.Rooms.BootstrapRetryLimit, cfg.Rooms.BootstrapRetryBackoff)
	bot.rooms = rooms.NewFeature(bot.panels, bot.admin, deps.Registry, deps.Localizer)

	application.RegisterRoomEventHandlers(deps.HandlerRegistrar, deps.Registry, bot.admin)

	// Register handlers
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.handleVoiceStateUpdate)
	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleInteractions)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		cancel()
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		cancel()
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	bot.startWorkers(ctx)

	if cfg.DebugAPIPort > 0 {
		if err := bot.StartDebugAPI(cfg.DebugAPIPort); err != nil {
			log.Warnf("Failed to start debug API on port %d: %v", cfg.DebugAPIPort, err)
		}
	}

	return bot, nil
}

// Close stops intake first, then lets voice changes already queued finish
// before cancelling the bot context
func (b *Bot) Close() error {
	b.stopWorkers()
	b.stopDebugAPI()
	err := b.session.Close()

	b.queue.Close()
	b.cancel()
	return err
}

// GetSession returns the Discord session
func (b *Bot) GetSession() *discordgo.Session {
	return b.session
}

// handleReady (re)starts the panel bootstrap for every configured guild
func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Discord session ready")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopBootstrap != nil {
		b.stopBootstrap()
	}
	b.stopBootstrap = b.bootstrapper.Start(b.ctx)
}

// handleVoiceStateUpdate hands voice transitions to the guild queue without blocking the event loop
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu.VoiceState == nil {
		return
	}
	if s.State.User != nil && vsu.UserID == s.State.User.ID {
		return
	}

	change, err := voiceStateChange(vsu)
	if err != nil {
		log.WithError(err).WithField("guild_id", vsu.GuildID).Warn("Ignoring malformed voice state update")
		return
	}

	if err := b.voice.Submit(b.ctx, change); err != nil {
		log.WithFields(log.Fields{
			"guild_id": change.GuildID,
			"user_id":  change.UserID,
		}).WithError(err).Warn("Voice state change dropped")
	}
}

// voiceStateChange converts a gateway voice update into a domain transition
func voiceStateChange(vsu *discordgo.VoiceStateUpdate) (entities.VoiceStateChange, error) {
	if vsu.VoiceState == nil {
		return entities.VoiceStateChange{}, fmt.Errorf("voice state update without state")
	}

	guildID, err := strconv.ParseInt(vsu.GuildID, 10, 64)
	if err != nil {
		return entities.VoiceStateChange{}, fmt.Errorf("guild id %q: %w", vsu.GuildID, err)
	}
	userID, err := strconv.ParseInt(vsu.UserID, 10, 64)
	if err != nil {
		return entities.VoiceStateChange{}, fmt.Errorf("user id %q: %w", vsu.UserID, err)
	}

	change := entities.VoiceStateChange{
		GuildID:    guildID,
		UserID:     userID,
		AfterFlags: voiceFlags(vsu.VoiceState),
	}
	if vsu.Member != nil {
		change.DisplayName = vsu.Member.DisplayName()
	}
	if change.After, err = optionalChannel(vsu.ChannelID); err != nil {
		return entities.VoiceStateChange{}, err
	}
	if vsu.BeforeUpdate != nil {
		change.BeforeFlags = voiceFlags(vsu.BeforeUpdate)
		if change.Before, err = optionalChannel(vsu.BeforeUpdate.ChannelID); err != nil {
			return entities.VoiceStateChange{}, err
		}
	}
	return change, nil
}

func optionalChannel(id string) (*int64, error) {
	if id == "" {
		return nil, nil
	}
	channelID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("channel id %q: %w", id, err)
	}
	return &channelID, nil
}

func voiceFlags(vs *discordgo.VoiceState) entities.VoiceFlags {
	return entities.VoiceFlags{
		SelfMute:   vs.SelfMute,
		SelfDeaf:   vs.SelfDeaf,
		SelfVideo:  vs.SelfVideo,
		SelfStream: vs.SelfStream,
	}
}

// handleCommands routes slash commands to appropriate handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case rooms.CommandName:
		go b.rooms.HandleCommand(s, i)
	}
}

// handleInteractions routes component interactions to appropriate features
func (b *Bot) handleInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var customID string
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		customID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		customID = i.ModalSubmitData().CustomID
	default:
		return
	}

	switch {
	case strings.HasPrefix(customID, rooms.CustomIDPrefix):
		go b.rooms.HandleInteraction(s, i)
	}
}

// GetGuilds returns a list of guilds the bot is connected to
func (b *Bot) GetGuilds() []GuildInfo {
	b.session.State.RLock()
	defer b.session.State.RUnlock()

	guilds := make([]GuildInfo, 0, len(b.session.State.Guilds))
	for _, guild := range b.session.State.Guilds {
		info := GuildInfo{ID: guild.ID, Name: guild.Name}
		if id, err := strconv.ParseInt(guild.ID, 10, 64); err == nil {
			if binding, ok := b.registry.Get(id); ok {
				info.Panel = &binding
			}
		}
		guilds = append(guilds, info)
	}
	return guilds
}
