// Package bot wires thread lifecycle events and chat commands to the
// tracker store and the summary service.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/summary"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/telemetry"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

// Config holds the bot's behavior settings.
type Config struct {
	// CommandPrefix precedes command names.
	CommandPrefix string

	// WelcomeMessage is posted into new tracked threads; "{thread}" is
	// replaced by the thread name. Empty disables the welcome.
	WelcomeMessage string

	// RefreshOnReady refreshes every digest when the gateway is ready.
	RefreshOnReady bool
}

// Bot implements channels.EventHandler.
type Bot struct {
	cfg       Config
	store     *tracker.Store
	summaries *summary.Service
	platform  channels.Platform
	logger    *slog.Logger
}

// New creates a Bot.
func New(cfg Config, store *tracker.Store, summaries *summary.Service, platform channels.Platform, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "$"
	}
	return &Bot{
		cfg:       cfg,
		store:     store,
		summaries: summaries,
		platform:  platform,
		logger:    logger.With("component", "bot"),
	}
}

// eventLogger tags one handler invocation so its log lines correlate.
func (b *Bot) eventLogger(kind string) *slog.Logger {
	return b.logger.With("event", kind, "event_id", uuid.NewString())
}

// OnReady refreshes every digest, catching up on changes made while the
// bot was offline.
func (b *Bot) OnReady(ctx context.Context) {
	if !b.cfg.RefreshOnReady {
		return
	}
	b.summaries.RefreshAll(ctx)
}

// OnThreadCreate welcomes new threads in tracked channels and refreshes
// the server's digest.
func (b *Bot) OnThreadCreate(ctx context.Context, ev channels.ThreadEvent) {
	th := ev.Thread
	if !ev.NewlyCreated || !b.store.IsTracked(th.GuildID, th.ParentID) {
		return
	}
	logger := b.eventLogger("thread_create")
	logger.Info("new thread created", "guild", th.GuildID, "parent", th.ParentID, "thread", th.Name)
	telemetry.RecordThreadEvent("create")

	if b.cfg.WelcomeMessage != "" {
		text := strings.ReplaceAll(b.cfg.WelcomeMessage, "{thread}", th.Name)
		if _, err := b.platform.PostMessage(ctx, th.ID, text); err != nil {
			logger.Warn("failed to post welcome message", "thread_id", th.ID, "error", err)
		}
	}
	b.summaries.Refresh(ctx, th.GuildID)
}

// OnThreadUpdate refreshes the digest when a tracked thread is archived,
// unarchived or renamed.
func (b *Bot) OnThreadUpdate(ctx context.Context, ev channels.ThreadEvent) {
	th := ev.Thread
	if !b.store.IsTracked(th.GuildID, th.ParentID) {
		return
	}
	if ev.Before != nil && ev.Before.Name == th.Name && ev.Before.Archived == th.Archived {
		return
	}
	b.eventLogger("thread_update").Info("thread updated",
		"guild", th.GuildID, "parent", th.ParentID, "thread", th.Name, "archived", th.Archived)
	telemetry.RecordThreadEvent("update")
	b.summaries.Refresh(ctx, th.GuildID)
}

// OnThreadDelete refreshes the digest when a tracked thread is deleted.
func (b *Bot) OnThreadDelete(ctx context.Context, ev channels.ThreadEvent) {
	th := ev.Thread
	if !b.store.IsTracked(th.GuildID, th.ParentID) {
		return
	}
	b.eventLogger("thread_delete").Info("thread deleted", "guild", th.GuildID, "parent", th.ParentID, "thread_id", th.ID)
	telemetry.RecordThreadEvent("delete")
	b.summaries.Refresh(ctx, th.GuildID)
}

// OnMessage dispatches prefixed commands and replies in the same channel.
func (b *Bot) OnMessage(ctx context.Context, msg channels.IncomingMessage) {
	if msg.AuthorIsBot || msg.GuildID == "" {
		return
	}
	res := b.HandleCommand(ctx, msg)
	if !res.Handled || res.Response == "" {
		return
	}
	if _, err := b.platform.PostMessage(ctx, msg.ChannelID, res.Response); err != nil {
		b.logger.Warn("failed to send command reply", "channel", msg.ChannelID, "error", err)
	}
	if res.Refresh {
		b.summaries.Refresh(ctx, msg.GuildID)
	}
}

var _ channels.EventHandler = (*Bot)(nil)
