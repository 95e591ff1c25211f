package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/config"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

// newSetupCmd creates the `threadbot setup` interactive wizard.
func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Ask for the bot token and basic settings, store the token in the
OS keyring and write a config file.

Examples:
  threadbot setup
  threadbot setup --output ./threadbot.yaml`,
		RunE: runSetup,
	}
	cmd.Flags().StringP("output", "o", "threadbot.yaml", "where to write the config file")
	cmd.Flags().Bool("no-keyring", false, "keep the token in the config file instead of the OS keyring")
	cmd.Flags().Bool("reset-token", false, "remove the token from the OS keyring and exit")
	return cmd
}

func runSetup(cmd *cobra.Command, _ []string) error {
	if reset, _ := cmd.Flags().GetBool("reset-token"); reset {
		return resetToken()
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("setup needs an interactive terminal; write the config file by hand instead")
	}

	output, _ := cmd.Flags().GetString("output")
	noKeyring, _ := cmd.Flags().GetBool("no-keyring")

	// Edit the file as written so env references and relative paths
	// survive the rewrite.
	cfg := config.DefaultConfig()
	if fileExists(output) {
		existing, err := config.LoadRaw(output)
		if err != nil {
			return fmt.Errorf("existing config could not be read, not overwriting it: %w", err)
		}
		cfg = existing
	}

	var (
		token    string
		lookback = fmt.Sprint(cfg.Summary.Lookback)
		confirm  = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Discord bot token").
				Description("From the Discord developer portal, Bot tab.").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("token is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Command prefix").
				Value(&cfg.Discord.CommandPrefix),
			huh.NewInput().
				Title("Welcome message for new threads").
				Description("{thread} is replaced by the thread name. Leave empty to disable.").
				Value(&cfg.Discord.WelcomeMessage),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage backend").
				Options(
					huh.NewOption("JSON file", tracker.BackendFile),
					huh.NewOption("SQLite", tracker.BackendSQLite),
					huh.NewOption("Memory (nothing persists)", tracker.BackendMemory),
				).
				Value(&cfg.Storage.Type),
			huh.NewInput().
				Title("Digest lookback").
				Description("How many recent messages to scan for old digests.").
				Value(&lookback).
				Validate(func(s string) error {
					var n int
					if _, err := fmt.Sscan(s, &n); err != nil || n < 1 || n > 100 {
						return errors.New("enter a number between 1 and 100")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Write config to " + output + "?").
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Aborted, nothing written.")
		return nil
	}

	_, _ = fmt.Sscan(lookback, &cfg.Summary.Lookback)
	if cfg.Storage.Type == tracker.BackendSQLite && cfg.Storage.Path == tracker.DefaultFilePath {
		cfg.Storage.Path = tracker.DefaultSQLitePath
	}

	token = strings.TrimSpace(token)
	cfg.Discord.Token = ""
	if noKeyring {
		cfg.Discord.Token = token
	} else if err := config.StoreToken(token); err != nil {
		fmt.Fprintf(os.Stderr, "Could not store token in the OS keyring (%v); writing it to the config file.\n", err)
		cfg.Discord.Token = token
	} else {
		fmt.Println("Token stored in the OS keyring.")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, output); err != nil {
		return err
	}
	fmt.Printf("Config written to %s. Start the bot with: threadbot serve -c %s\n", output, output)
	return nil
}

func resetToken() error {
	err := config.DeleteToken()
	if errors.Is(err, keyring.ErrNotFound) {
		fmt.Println("No token stored in the OS keyring.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing token from keyring: %w", err)
	}
	fmt.Println("Token removed from the OS keyring.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
