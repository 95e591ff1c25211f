package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/config"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

// newStatusCmd creates the `threadbot status` command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored tracking configuration",
		Long: `Print the tracked channels and summary channel of every server from
the configured storage backend. Does not connect to Discord.`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, configPath, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	backend, err := tracker.NewBackend(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		return err
	}
	store := tracker.Open(backend, logger)
	defer store.Close()

	out := cmd.OutOrStdout()
	if configPath == "" {
		configPath = "(defaults)"
	}
	fmt.Fprintf(out, "Config:   %s\n", configPath)
	fmt.Fprintf(out, "Storage:  %s %s\n", cfg.Storage.Type, cfg.Storage.Path)
	if src := tokenSource(); src != "" {
		fmt.Fprintf(out, "Token:    %s\n", src)
	} else if cfg.Discord.Token != "" {
		fmt.Fprintln(out, "Token:    config")
	} else {
		fmt.Fprintln(out, "Token:    not configured")
	}

	snap := store.Snapshot()
	guilds := make([]string, 0, len(snap.TrackedChannels)+len(snap.ThreadSummaryChannels))
	for g := range snap.TrackedChannels {
		guilds = append(guilds, g)
	}
	for g := range snap.ThreadSummaryChannels {
		if !slices.Contains(guilds, g) {
			guilds = append(guilds, g)
		}
	}
	slices.Sort(guilds)

	if len(guilds) == 0 {
		fmt.Fprintln(out, "\nNo servers configured.")
		return nil
	}
	for _, g := range guilds {
		fmt.Fprintf(out, "\nServer %s\n", g)
		if dest, ok := snap.ThreadSummaryChannels[g]; ok {
			fmt.Fprintf(out, "  summary channel: %s\n", dest)
		} else {
			fmt.Fprintln(out, "  summary channel: (none)")
		}
		tracked := snap.TrackedChannels[g]
		if len(tracked) == 0 {
			fmt.Fprintln(out, "  tracked: (none)")
			continue
		}
		fmt.Fprintln(out, "  tracked:")
		for _, id := range tracked {
			fmt.Fprintf(out, "    - %s\n", id)
		}
	}
	return nil
}

func tokenSource() string {
	if config.KeyringToken() != "" {
		return "keyring"
	}
	return ""
}
