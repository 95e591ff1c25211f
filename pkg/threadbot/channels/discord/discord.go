// Package discord implements the threadbot platform on top of discordgo.
//
// The adapter owns the gateway session, converts thread lifecycle and
// message events into channels types for an EventHandler, and implements
// channels.Platform with REST calls bound to the caller's context.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
)

// Config holds Discord adapter configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// EventTimeout bounds the work done for one inbound event.
	EventTimeout time.Duration
}

// Discord implements channels.Platform.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session
	handler channels.EventHandler

	connected   atomic.Bool
	lastEvent   atomic.Value // time.Time
	connectedAt atomic.Value // time.Time
	errorCount  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Discord adapter. Call Connect to open the gateway.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 30 * time.Second
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
	}
}

// Connect opens the gateway WebSocket and starts delivering events to handler.
func (d *Discord) Connect(ctx context.Context, handler channels.EventHandler) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.handler = handler

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	// Thread events arrive with the Guilds intent; commands need message content.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onReady)
	session.AddHandler(d.onThreadCreate)
	session.AddHandler(d.onThreadUpdate)
	session.AddHandler(d.onThreadDelete)
	session.AddHandler(d.onMessageCreate)

	d.session = session
	if err := session.Open(); err != nil {
		d.session = nil
		return fmt.Errorf("discord: opening gateway: %w", err)
	}
	d.connected.Store(true)
	d.connectedAt.Store(time.Now())

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the gateway connection.
func (d *Discord) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
	}
	var err error
	if d.session != nil {
		err = d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return err
}

// IsConnected returns true if the gateway is open.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Health returns the connection health.
func (d *Discord) Health() channels.HealthStatus {
	h := channels.HealthStatus{
		Connected:  d.IsConnected(),
		ErrorCount: int(d.errorCount.Load()),
	}
	if v, ok := d.lastEvent.Load().(time.Time); ok {
		h.LastEventAt = v
	}
	if v, ok := d.connectedAt.Load().(time.Time); ok {
		h.ConnectedAt = v
	}
	return h
}

// ---------- Platform ----------

// SelfID returns the bot user ID.
func (d *Discord) SelfID() string {
	if d.session == nil || d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

// GetChannel resolves a channel from the state cache, falling back to REST.
func (d *Discord) GetChannel(ctx context.Context, channelID string) (*channels.ChannelInfo, error) {
	if d.session == nil {
		return nil, channels.ErrChannelDisconnected
	}
	if ch, err := d.session.State.Channel(channelID); err == nil {
		info := toChannelInfo(ch)
		return &info, nil
	}
	ch, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, d.translate(err)
	}
	info := toChannelInfo(ch)
	return &info, nil
}

// ListThreads returns the server's active, unarchived threads with one
// REST call.
func (d *Discord) ListThreads(ctx context.Context, guildID string) ([]channels.ChannelInfo, error) {
	if d.session == nil {
		return nil, channels.ErrChannelDisconnected
	}
	list, err := d.session.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, d.translate(err)
	}
	return activeThreads(list.Threads), nil
}

// PostMessage sends content to channelID.
func (d *Discord) PostMessage(ctx context.Context, channelID, content string) (*channels.Message, error) {
	if d.session == nil {
		return nil, channels.ErrChannelDisconnected
	}
	m, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, d.translate(err)
	}
	msg := toMessage(m)
	return &msg, nil
}

// DeleteMessage deletes a message. A message that is already gone is not an error.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}
	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil && restCode(err) == discordgo.ErrCodeUnknownMessage {
		return nil
	}
	if err != nil {
		return d.translate(err)
	}
	return nil
}

// ListRecentMessages returns the newest limit messages, newest first.
func (d *Discord) ListRecentMessages(ctx context.Context, channelID string, limit int) ([]channels.Message, error) {
	if d.session == nil {
		return nil, channels.ErrChannelDisconnected
	}
	msgs, err := d.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, d.translate(err)
	}
	out := make([]channels.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessage(m))
	}
	return out, nil
}

// IsAdmin reports whether userID has the Administrator permission in channelID.
func (d *Discord) IsAdmin(ctx context.Context, _, channelID, userID string) (bool, error) {
	if d.session == nil {
		return false, channels.ErrChannelDisconnected
	}
	perms, err := d.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, d.translate(err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

// ---------- Event Handlers ----------

func (d *Discord) eventContext() (context.Context, context.CancelFunc) {
	d.lastEvent.Store(time.Now())
	return context.WithTimeout(d.ctx, d.cfg.EventTimeout)
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.logger.Info("discord: ready", "guilds", len(r.Guilds))
	ctx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	d.handler.OnReady(ctx)
}

func (d *Discord) onThreadCreate(_ *discordgo.Session, t *discordgo.ThreadCreate) {
	if t.Channel == nil || t.GuildID == "" {
		return
	}
	ctx, cancel := d.eventContext()
	defer cancel()
	d.handler.OnThreadCreate(ctx, channels.ThreadEvent{
		Thread:       toChannelInfo(t.Channel),
		NewlyCreated: t.NewlyCreated,
	})
}

func (d *Discord) onThreadUpdate(_ *discordgo.Session, t *discordgo.ThreadUpdate) {
	if t.Channel == nil || t.GuildID == "" {
		return
	}
	ev := channels.ThreadEvent{Thread: toChannelInfo(t.Channel)}
	if t.BeforeUpdate != nil {
		before := toChannelInfo(t.BeforeUpdate)
		ev.Before = &before
	}
	ctx, cancel := d.eventContext()
	defer cancel()
	d.handler.OnThreadUpdate(ctx, ev)
}

func (d *Discord) onThreadDelete(_ *discordgo.Session, t *discordgo.ThreadDelete) {
	if t.Channel == nil || t.GuildID == "" {
		return
	}
	ctx, cancel := d.eventContext()
	defer cancel()
	d.handler.OnThreadDelete(ctx, channels.ThreadEvent{Thread: toChannelInfo(t.Channel)})
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	incoming := channels.IncomingMessage{
		ID:          m.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
	}
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		incoming.ChannelName = ch.Name
	}

	ctx, cancel := d.eventContext()
	defer cancel()
	d.handler.OnMessage(ctx, incoming)
}

// ---------- Helpers ----------

func toChannelInfo(ch *discordgo.Channel) channels.ChannelInfo {
	info := channels.ChannelInfo{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
	}
	if ch.ThreadMetadata != nil {
		info.Archived = ch.ThreadMetadata.Archived
	}
	return info
}

func toMessage(m *discordgo.Message) channels.Message {
	msg := channels.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	return msg
}

// activeThreads drops archived entries from a guild-wide thread list,
// keeping the API order.
func activeThreads(threads []*discordgo.Channel) []channels.ChannelInfo {
	out := make([]channels.ChannelInfo, 0)
	for _, th := range threads {
		if th == nil {
			continue
		}
		if th.ThreadMetadata != nil && th.ThreadMetadata.Archived {
			continue
		}
		out = append(out, toChannelInfo(th))
	}
	return out
}

func restCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return -1
}

// translate maps discordgo failures onto the channels sentinels.
func (d *Discord) translate(err error) error {
	d.errorCount.Add(1)
	return translateError(err)
}

func translateError(err error) error {
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%w: %v", channels.ErrChannelNotFound, err)
	}
	switch restCode(err) {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild:
		return fmt.Errorf("%w: %v", channels.ErrChannelNotFound, err)
	case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
		return fmt.Errorf("%w: %v", channels.ErrPermissionDenied, err)
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", channels.ErrChannelNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", channels.ErrPermissionDenied, err)
		}
	}
	return err
}

// Compile-time interface verification.
var _ channels.Platform = (*Discord)(nil)
