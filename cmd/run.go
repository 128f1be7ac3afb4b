package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chisato/application"
	"chisato/bot"
	"chisato/config"
	"chisato/database"
	"chisato/infrastructure"
	"chisato/infrastructure/locale"
	"chisato/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the level and format. An empty level keeps the current one.
func ConfigureLogging(level, format string) {
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if level == "" {
		return
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, keeping %s", level, log.GetLevel())
		return
	}
	log.SetLevel(parsed)
}

// Run initializes and starts the application. logLevel overrides the configured level when set.
func Run(ctx context.Context, logLevel string) error {
	// Load configuration
	cfg := config.Get()
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	ConfigureLogging(logLevel, cfg.LogFormat)

	log.WithField("environment", cfg.Environment).Info("Starting chisato...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// NATS is optional, without it events only reach local handlers
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
	} else {
		log.Info("NATS_SERVERS not set, room events stay in process")
	}

	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := eventPublisher.EnsureDomainEventStream(); err != nil {
		log.WithError(err).Warn("Failed to ensure room event stream")
	}

	// Initialize unit of work factory
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	catalog, err := locale.Load(cfg.DefaultLocale)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load locale catalog: %w", err)
	}
	log.WithField("languages", catalog.Languages()).Info("Locale catalog loaded")

	queue := application.NewGuildQueue()
	registry := application.NewPanelRegistry()

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:        cfg.DiscordToken,
		DebugAPIPort: cfg.DebugAPIPort,
		Rooms:        cfg.Rooms,
	}, bot.Dependencies{
		UnitOfWorkFactory: uowFactory,
		HandlerRegistrar:  uowFactory,
		Localizer:         catalog,
		Queue:             queue,
		Registry:          registry,
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")

	// Closing the bot drains queued voice events, so it goes before the pool
	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Errorf("Error flushing metrics: %v", err)
	}

	// Close database connection
	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
