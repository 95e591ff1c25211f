package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/bot"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels/discord"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/config"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/ops"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/summary"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/telemetry"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

const shutdownTimeout = 15 * time.Second

// newServeCmd creates the `threadbot serve` command that runs the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and start tracking threads",
		Long: `Connect to the Discord gateway and keep thread digests up to date
until interrupted.

The bot token is read from the OS keyring, then the config file, then
the DISCORD_TOKEN environment variable.

Examples:
  threadbot serve
  threadbot serve --config ./threadbot.yaml -v`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, configPath, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	if configPath != "" {
		logger.Info("config loaded", "path", configPath)
	} else {
		logger.Info("no config file found, using defaults")
	}

	// ── Resolve token ──
	source := config.ResolveToken(cfg, logger)
	if source == "" {
		return fmt.Errorf("no Discord bot token: run `threadbot setup` or set %s", config.TokenEnvVar)
	}
	logger.Info("discord token resolved", "source", source)

	// ── Open tracking store ──
	backend, err := tracker.NewBackend(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Type, err)
	}
	store := tracker.Open(backend, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	telemetry.Init()

	// ── Wire components ──
	dc := discord.New(discord.Config{
		Token:        cfg.Discord.Token,
		EventTimeout: cfg.Discord.EventTimeout,
	}, logger)

	summaries := summary.NewService(store, dc, summary.Config{
		Lookback:         cfg.Summary.Lookback,
		MaxMessageLength: cfg.Summary.MaxMessageLength,
	}, logger)

	b := bot.New(bot.Config{
		CommandPrefix:  cfg.Discord.CommandPrefix,
		WelcomeMessage: cfg.Discord.WelcomeMessage,
		RefreshOnReady: cfg.Summary.RefreshOnReady,
	}, store, summaries, dc, logger)

	sched, err := bot.NewScheduler(cfg.Summary.RefreshSchedule, summaries, 0, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Start ops endpoints ──
	var opsServer *ops.Server
	if cfg.Ops.Enabled {
		opsServer = ops.New(cfg.Ops.Address, dc.Health, logger)
		if err := opsServer.Start(ctx); err != nil {
			logger.Error("failed to start ops server", "error", err)
			opsServer = nil
		}
	}

	// ── Connect ──
	if err := dc.Connect(ctx, b); err != nil {
		return fmt.Errorf("connecting to Discord: %w", err)
	}
	sched.Start(ctx)

	logger.Info("threadbot running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"prefix", cfg.Discord.CommandPrefix,
		"storage", cfg.Storage.Type,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Stop()
		if err := dc.Disconnect(); err != nil {
			logger.Warn("discord disconnect failed", "error", err)
		}
		cancel()
		if opsServer != nil {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := opsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown failed", "error", err)
			}
		}
	}()

	select {
	case <-done:
		logger.Info("threadbot stopped gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
	return nil
}
