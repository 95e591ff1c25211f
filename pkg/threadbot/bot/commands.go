// commands.go implements the chat commands. Commands are prefixed with the
// configured prefix ("$" by default):
//
//	track_channel        - track threads in the current channel (admin)
//	untrack_channel      - stop tracking the current channel (admin)
//	list_tracked         - list tracked channels
//	set_summary_channel  - post the digest in the current channel (admin)
//	help                 - show available commands
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/telemetry"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

const (
	msgPermissionDenied = "You need administrator permission to use this command."
	msgSaveFailed       = "Failed to save tracking configuration. Please try again."
	msgNoneTracked      = "No channels are being tracked in this server."
	msgNoneValid        = "No valid channels are being tracked in this server."
	msgSummarySet       = "This channel has been set as the thread summary channel."
)

// CommandResult contains the result of a command execution.
type CommandResult struct {
	// Response is the text to send back.
	Response string

	// Handled is true if the message was a known command.
	Handled bool

	// Refresh is true when the digest should be re-rendered after replying.
	Refresh bool
}

type command struct {
	name  string
	admin bool
	help  string
	run   func(b *Bot, ctx context.Context, msg channels.IncomingMessage) CommandResult
}

func commandTable() []command {
	return []command{
		{"track_channel", true, "Track threads in this channel", (*Bot).trackChannel},
		{"untrack_channel", true, "Stop tracking threads in this channel", (*Bot).untrackChannel},
		{"list_tracked", false, "List tracked channels", (*Bot).listTracked},
		{"set_summary_channel", true, "Post the thread summary in this channel", (*Bot).setSummaryChannel},
		{"help", false, "Show this help", (*Bot).helpCommand},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commandTable() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// HandleCommand runs a prefixed command. Unknown commands, ordinary
// messages and names that differ in case or are separated from the prefix
// return Handled=false.
func (b *Bot) HandleCommand(ctx context.Context, msg channels.IncomingMessage) CommandResult {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, b.cfg.CommandPrefix) {
		return CommandResult{}
	}
	// The name must follow the prefix directly and match exactly.
	rest := strings.TrimPrefix(content, b.cfg.CommandPrefix)
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasPrefix(rest, fields[0]) {
		return CommandResult{}
	}
	cmd, ok := lookupCommand(fields[0])
	if !ok {
		return CommandResult{}
	}

	logger := b.eventLogger("command").With("command", cmd.name, "guild", msg.GuildID, "channel", msg.ChannelID, "user", msg.AuthorID)

	if cmd.admin {
		isAdmin, err := b.platform.IsAdmin(ctx, msg.GuildID, msg.ChannelID, msg.AuthorID)
		if err != nil {
			logger.Warn("permission check failed", "error", err)
		}
		if !isAdmin {
			logger.Info("command denied")
			telemetry.RecordCommand(cmd.name, "denied")
			return CommandResult{Response: msgPermissionDenied, Handled: true}
		}
	}

	res := cmd.run(b, ctx, msg)
	res.Handled = true
	logger.Debug("command handled", "refresh", res.Refresh)
	return res
}

func channelLabel(msg channels.IncomingMessage) string {
	if msg.ChannelName != "" {
		return msg.ChannelName
	}
	return msg.ChannelID
}

func (b *Bot) trackChannel(_ context.Context, msg channels.IncomingMessage) CommandResult {
	res, err := b.store.TrackChannel(msg.GuildID, msg.ChannelID)
	if err != nil {
		return b.saveFailed("track_channel", err)
	}
	if res == tracker.AlreadyTracked {
		telemetry.RecordCommand("track_channel", "noop")
		return CommandResult{Response: fmt.Sprintf("Already tracking threads in channel '%s'.", channelLabel(msg))}
	}
	telemetry.RecordCommand("track_channel", "ok")
	return CommandResult{
		Response: fmt.Sprintf("Now tracking threads in channel '%s'.", channelLabel(msg)),
		Refresh:  true,
	}
}

func (b *Bot) untrackChannel(_ context.Context, msg channels.IncomingMessage) CommandResult {
	res, err := b.store.UntrackChannel(msg.GuildID, msg.ChannelID)
	if err != nil {
		return b.saveFailed("untrack_channel", err)
	}
	if res == tracker.NotTracked {
		telemetry.RecordCommand("untrack_channel", "noop")
		return CommandResult{Response: fmt.Sprintf("Not tracking threads in channel '%s'.", channelLabel(msg))}
	}
	telemetry.RecordCommand("untrack_channel", "ok")
	return CommandResult{
		Response: fmt.Sprintf("Stopped tracking threads in channel '%s'.", channelLabel(msg)),
		Refresh:  true,
	}
}

func (b *Bot) listTracked(ctx context.Context, msg channels.IncomingMessage) CommandResult {
	ids := b.store.ListTracked(msg.GuildID)
	telemetry.RecordCommand("list_tracked", "ok")
	if len(ids) == 0 {
		return CommandResult{Response: msgNoneTracked}
	}

	var lines []string
	for _, id := range ids {
		ch, err := b.platform.GetChannel(ctx, id)
		if err != nil {
			if !errors.Is(err, channels.ErrChannelNotFound) {
				b.logger.Warn("failed to resolve tracked channel", "channel", id, "error", err)
			}
			continue
		}
		lines = append(lines, "• #"+ch.Name)
	}
	if len(lines) == 0 {
		return CommandResult{Response: msgNoneValid}
	}
	return CommandResult{Response: "**Tracked Channels:**\n" + strings.Join(lines, "\n")}
}

func (b *Bot) setSummaryChannel(_ context.Context, msg channels.IncomingMessage) CommandResult {
	if err := b.store.SetSummaryChannel(msg.GuildID, msg.ChannelID); err != nil {
		return b.saveFailed("set_summary_channel", err)
	}
	telemetry.RecordCommand("set_summary_channel", "ok")
	return CommandResult{Response: msgSummarySet, Refresh: true}
}

func (b *Bot) helpCommand(_ context.Context, _ channels.IncomingMessage) CommandResult {
	var sb strings.Builder
	sb.WriteString("**Thread tracking commands:**\n")
	for _, c := range commandTable() {
		fmt.Fprintf(&sb, "`%s%s` - %s", b.cfg.CommandPrefix, c.name, c.help)
		if c.admin {
			sb.WriteString(" (admin)")
		}
		sb.WriteString("\n")
	}
	telemetry.RecordCommand("help", "ok")
	return CommandResult{Response: strings.TrimRight(sb.String(), "\n")}
}

func (b *Bot) saveFailed(name string, err error) CommandResult {
	b.logger.Error("command failed to persist", "command", name, "error", err)
	telemetry.RecordCommand(name, "error")
	telemetry.RecordSaveFailure()
	return CommandResult{Response: msgSaveFailed}
}
