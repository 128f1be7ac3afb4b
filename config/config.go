package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"chisato/database"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables publishing

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Localization
	DefaultLocale string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Debug API
	DebugAPIPort int

	// Temporary voice rooms
	Rooms RoomsConfig

	// Environment
	Environment string // "development", "production" or "test"
}

// RoomsConfig holds the knobs of the temporary voice room subsystem
type RoomsConfig struct {
	CooldownSeconds        int           `yaml:"cooldown_seconds"`
	OrphanSweepInterval    time.Duration `yaml:"orphan_sweep_interval"`
	CooldownExpireInterval time.Duration `yaml:"cooldown_expire_interval"`
	BootstrapRetryLimit    int           `yaml:"bootstrap_retry_limit"`
	BootstrapRetryBackoff  time.Duration `yaml:"bootstrap_retry_backoff"`
	DefaultUserLimit       int           `yaml:"default_user_limit"`
	GatewayTimeout         time.Duration `yaml:"gateway_timeout"`
	SweepConcurrency       int           `yaml:"sweep_concurrency"`
}

// Cooldown returns the per-room rename/limit window
func (r RoomsConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// fileConfig is the optional YAML overlay
type fileConfig struct {
	Rooms RoomsConfig `yaml:"rooms"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup

	configFile string
)

// SetConfigFile sets the YAML overlay path used on first load
func SetConfigFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFile = path
}

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
				instance.DiscordToken = "test-token"
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// DefaultRoomsConfig returns the room knobs with their documented defaults
func DefaultRoomsConfig() RoomsConfig {
	return RoomsConfig{
		CooldownSeconds:        420,
		OrphanSweepInterval:    30 * time.Second,
		CooldownExpireInterval: 60 * time.Second,
		BootstrapRetryLimit:    7,
		BootstrapRetryBackoff:  60 * time.Second,
		DefaultUserLimit:       2,
		GatewayTimeout:         10 * time.Second,
		SweepConcurrency:       4,
	}
}

// load loads configuration from the optional YAML file and environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken: os.Getenv("DISCORD_TOKEN"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Logging
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		// Localization
		DefaultLocale: getEnvWithDefault("DEFAULT_LOCALE", "en-US"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "chisato"),
		OTelExportIntervalMillis: getEnvInt("OTEL_EXPORT_INTERVAL_MILLIS", 60000),

		DebugAPIPort: 8899,

		Rooms: DefaultRoomsConfig(),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := applyFile(config, path); err != nil {
			return nil, err
		}
	}

	// Environment variables win over the file
	config.Rooms.CooldownSeconds = getEnvInt("ROOMS_COOLDOWN_SECONDS", config.Rooms.CooldownSeconds)
	config.Rooms.OrphanSweepInterval = getEnvDuration("ROOMS_ORPHAN_SWEEP_INTERVAL", config.Rooms.OrphanSweepInterval)
	config.Rooms.CooldownExpireInterval = getEnvDuration("ROOMS_COOLDOWN_EXPIRE_INTERVAL", config.Rooms.CooldownExpireInterval)
	config.Rooms.BootstrapRetryLimit = getEnvInt("ROOMS_BOOTSTRAP_RETRY_LIMIT", config.Rooms.BootstrapRetryLimit)
	config.Rooms.BootstrapRetryBackoff = getEnvDuration("ROOMS_BOOTSTRAP_RETRY_BACKOFF", config.Rooms.BootstrapRetryBackoff)
	config.Rooms.DefaultUserLimit = getEnvInt("ROOMS_DEFAULT_USER_LIMIT", config.Rooms.DefaultUserLimit)
	config.Rooms.GatewayTimeout = getEnvDuration("ROOMS_GATEWAY_TIMEOUT", config.Rooms.GatewayTimeout)
	config.Rooms.SweepConcurrency = getEnvInt("ROOMS_SWEEP_CONCURRENCY", config.Rooms.SweepConcurrency)
	config.DebugAPIPort = getEnvInt("DEBUG_API_PORT", config.DebugAPIPort)

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.Rooms.Validate(); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// Validate checks the room knobs for values the subsystem cannot run with
func (r RoomsConfig) Validate() error {
	if r.CooldownSeconds < 0 {
		return fmt.Errorf("rooms cooldown_seconds must be non-negative, got %d", r.CooldownSeconds)
	}
	if r.OrphanSweepInterval <= 0 || r.CooldownExpireInterval <= 0 {
		return fmt.Errorf("rooms sweep intervals must be positive")
	}
	if r.BootstrapRetryLimit < 1 {
		return fmt.Errorf("rooms bootstrap_retry_limit must be at least 1, got %d", r.BootstrapRetryLimit)
	}
	if r.DefaultUserLimit < 0 || r.DefaultUserLimit > 99 {
		return fmt.Errorf("rooms default_user_limit must be within 0..99, got %d", r.DefaultUserLimit)
	}
	if r.SweepConcurrency < 1 {
		return fmt.Errorf("rooms sweep_concurrency must be at least 1, got %d", r.SweepConcurrency)
	}
	return nil
}

// applyFile overlays the rooms section of a YAML file onto the config
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	overlay := fileConfig{Rooms: config.Rooms}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	config.Rooms = overlay.Rooms
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
	configFile = ""
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		LogLevel:                 "debug",
		LogFormat:                "text",
		DefaultLocale:            "en-US",
		OTelExporterType:         "none",
		OTelServiceName:          "chisato-test",
		OTelExportIntervalMillis: 1000,
		Rooms:                    DefaultRoomsConfig(),
	}
}
