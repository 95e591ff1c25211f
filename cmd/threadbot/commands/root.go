// Package commands implements the threadbot CLI using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/config"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "threadbot",
		Short: "threadbot - Discord forum thread digests",
		Long: `threadbot tracks forum channels in Discord servers and keeps a
digest of their active threads in a designated summary channel.

Examples:
  threadbot setup
  threadbot serve
  threadbot serve --config ./threadbot.yaml
  threadbot status`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSetupCmd(),
		newStatusCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// resolveConfig loads the config named by --config, or discovers one.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.Load(path)
}

// newLogger builds the process logger from the logging section.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
