// Package config holds threadbot's process configuration: the Discord
// connection, where the tracker record is stored, digest tuning, logging
// and the optional ops listener.
package config

import (
	"fmt"
	"time"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/summary"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

// Config is the root configuration.
type Config struct {
	// Name is used in logs and the ops health payload.
	Name string `yaml:"name"`

	Discord DiscordConfig `yaml:"discord"`
	Storage StorageConfig `yaml:"storage"`
	Summary SummaryConfig `yaml:"summary"`
	Logging LoggingConfig `yaml:"logging"`
	Ops     OpsConfig     `yaml:"ops"`
}

// DiscordConfig configures the gateway connection and chat commands.
type DiscordConfig struct {
	// Token is the bot token. Usually ${DISCORD_TOKEN} or left empty and
	// resolved from the OS keyring.
	Token string `yaml:"token"`

	// CommandPrefix precedes command names in chat, e.g. "$track_channel".
	CommandPrefix string `yaml:"command_prefix"`

	// WelcomeMessage is posted into new threads of tracked channels.
	// "{thread}" is replaced by the thread name. Empty disables it.
	WelcomeMessage string `yaml:"welcome_message"`

	// EventTimeout bounds the platform calls made while handling one event.
	EventTimeout time.Duration `yaml:"event_timeout"`
}

// StorageConfig selects the tracker backend.
type StorageConfig struct {
	// Type is "file", "sqlite" or "memory".
	Type string `yaml:"type"`

	// Path is the JSON file or SQLite database path.
	Path string `yaml:"path"`
}

// SummaryConfig tunes digest publishing.
type SummaryConfig struct {
	// Lookback is how many recent messages are scanned for old digests.
	Lookback int `yaml:"lookback"`

	// MaxMessageLength splits longer digests.
	MaxMessageLength int `yaml:"max_message_length"`

	// RefreshSchedule is a cron expression or descriptor ("@every 30m")
	// for periodic re-rendering of every digest. Empty disables it.
	RefreshSchedule string `yaml:"refresh_schedule"`

	// RefreshOnReady re-renders every digest after connecting.
	RefreshOnReady bool `yaml:"refresh_on_ready"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// OpsConfig configures the health/metrics listener.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "threadbot",
		Discord: DiscordConfig{
			CommandPrefix:  "$",
			WelcomeMessage: "Welcome to the thread '{thread}'!",
			EventTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Type: tracker.BackendFile,
			Path: tracker.DefaultFilePath,
		},
		Summary: SummaryConfig{
			Lookback:         summary.DefaultLookback,
			MaxMessageLength: summary.DefaultMaxMessageLength,
			RefreshSchedule:  "@every 30m",
			RefreshOnReady:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ops: OpsConfig{
			Address: "127.0.0.1:9464",
		},
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case tracker.BackendFile, tracker.BackendSQLite, tracker.BackendMemory:
	default:
		return fmt.Errorf("storage.type: unknown backend %q", c.Storage.Type)
	}
	if c.Discord.CommandPrefix == "" {
		return fmt.Errorf("discord.command_prefix must not be empty")
	}
	if c.Discord.EventTimeout <= 0 {
		return fmt.Errorf("discord.event_timeout must be positive")
	}
	if c.Summary.Lookback <= 0 || c.Summary.Lookback > 100 {
		return fmt.Errorf("summary.lookback must be between 1 and 100, got %d", c.Summary.Lookback)
	}
	if c.Summary.MaxMessageLength <= 0 || c.Summary.MaxMessageLength > summary.DefaultMaxMessageLength {
		return fmt.Errorf("summary.max_message_length must be between 1 and %d, got %d",
			summary.DefaultMaxMessageLength, c.Summary.MaxMessageLength)
	}
	if c.Ops.Enabled && c.Ops.Address == "" {
		return fmt.Errorf("ops.address is required when ops is enabled")
	}
	return nil
}
