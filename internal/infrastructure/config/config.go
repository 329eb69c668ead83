package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
	Engine      EngineConfig
	Permissions PermissionConfig
	Webhook     WebhookConfig
}

// ServerConfig holds host bridge HTTP configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8000"`
	Host           string   `envconfig:"HOST" default:"0.0.0.0"`
	MaxConnections int      `envconfig:"MAX_CONNECTIONS" default:"256"`
	AllowOrigins   []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// EngineConfig holds engine adapter configuration.
type EngineConfig struct {
	DebugLogFilter   string        `envconfig:"ENGINE_DEBUG_LOG_FILTER" default:"debug@VidyoClient debug@VidyoConnector info warning"`
	ReleaseLogFilter string        `envconfig:"ENGINE_RELEASE_LOG_FILTER" default:"info@VidyoClient info@VidyoConnector info warning"`
	ConnectLatency   time.Duration `envconfig:"ENGINE_CONNECT_LATENCY" default:"250ms"`
	FailInit         bool          `envconfig:"ENGINE_FAIL_INIT" default:"false"`
}

// PermissionConfig holds capture permission policy for headless hosts.
type PermissionConfig struct {
	AutoGrant bool `envconfig:"PERMISSIONS_AUTO_GRANT" default:"true"`
}

// WebhookConfig holds event webhook delivery configuration.
// An empty URL disables the webhook.
type WebhookConfig struct {
	URL              string        `envconfig:"WEBHOOK_URL"`
	Timeout          time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
	Retries          int           `envconfig:"WEBHOOK_RETRIES" default:"2"`
	QueueSize        int           `envconfig:"WEBHOOK_QUEUE_SIZE" default:"256"`
	FailureThreshold int           `envconfig:"WEBHOOK_FAILURE_THRESHOLD" default:"5"`
	Cooldown         time.Duration `envconfig:"WEBHOOK_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			MaxConnections: 256,
			AllowOrigins:   []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		Engine: EngineConfig{
			DebugLogFilter:   "debug@VidyoClient debug@VidyoConnector info warning",
			ReleaseLogFilter: "info@VidyoClient info@VidyoConnector info warning",
			ConnectLatency:   250 * time.Millisecond,
		},
		Permissions: PermissionConfig{
			AutoGrant: true,
		},
		Webhook: WebhookConfig{
			Timeout:          5 * time.Second,
			Retries:          2,
			QueueSize:        256,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
	}
}

// LoadProfile reads a room profile, a ConnectionParams encoded as TOML when
// the file ends in .toml and as YAML otherwise. Missing maxParticipants
// takes the default before validation.
func LoadProfile(path string) (types.ConnectionParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ConnectionParams{}, fmt.Errorf("failed to read profile: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}

	var params types.ConnectionParams
	if err := unmarshal(data, &params); err != nil {
		return types.ConnectionParams{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if params.MaxParticipants == 0 {
		params.MaxParticipants = types.DefaultMaxParticipants
	}
	if err := params.Validate(); err != nil {
		return types.ConnectionParams{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return params, nil
}
