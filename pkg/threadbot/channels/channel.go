// Package channels defines the platform contracts threadbot relies on.
// The Discord adapter implements Platform and feeds events to an
// EventHandler; everything else in threadbot only sees these types, so
// handlers can be exercised without a live connection.
package channels

import (
	"context"
	"errors"
	"time"
)

// ChannelInfo describes a guild channel or thread.
type ChannelInfo struct {
	// ID is the platform channel identifier.
	ID string

	// GuildID is the server the channel belongs to.
	GuildID string

	// ParentID is the parent channel for threads. Empty for top-level channels.
	ParentID string

	// Name is the display name.
	Name string

	// Archived is true for threads that are no longer active.
	Archived bool
}

// Message is a posted chat message.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Timestamp time.Time
}

// Platform is the chat-platform capability used by the tracker, the
// summary renderer and the command handlers.
type Platform interface {
	// SelfID returns the bot's own user ID.
	SelfID() string

	// GetChannel resolves a channel. Returns ErrChannelNotFound when the
	// channel no longer exists.
	GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error)

	// ListThreads returns every active thread in a server in the
	// platform's native order. Callers group them by ParentID.
	ListThreads(ctx context.Context, guildID string) ([]ChannelInfo, error)

	// PostMessage sends a text message to a channel or thread.
	PostMessage(ctx context.Context, channelID, content string) (*Message, error)

	// DeleteMessage deletes a message.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// ListRecentMessages returns up to limit of the newest messages, newest first.
	ListRecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)

	// IsAdmin reports whether the user holds administrator permission in
	// the given channel.
	IsAdmin(ctx context.Context, guildID, channelID, userID string) (bool, error)
}

// ThreadEvent is a thread lifecycle notification.
type ThreadEvent struct {
	Thread ChannelInfo

	// Before is the previous state for updates, if the platform cached it.
	Before *ChannelInfo

	// NewlyCreated is false when a create event only means the bot was
	// added to an existing thread.
	NewlyCreated bool
}

// IncomingMessage is a text message received in a guild channel.
type IncomingMessage struct {
	ID          string
	GuildID     string
	ChannelID   string
	ChannelName string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
	Timestamp   time.Time
}

// EventHandler receives platform events. Implementations must be safe for
// concurrent use; the adapter may deliver events from several goroutines.
type EventHandler interface {
	OnReady(ctx context.Context)
	OnThreadCreate(ctx context.Context, ev ThreadEvent)
	OnThreadUpdate(ctx context.Context, ev ThreadEvent)
	OnThreadDelete(ctx context.Context, ev ThreadEvent)
	OnMessage(ctx context.Context, msg IncomingMessage)
}

// HealthStatus represents the health state of the platform connection.
type HealthStatus struct {
	Connected   bool
	LastEventAt time.Time
	ErrorCount  int
	ConnectedAt time.Time
}

// Errors.
var (
	ErrChannelDisconnected = errors.New("channel is not connected")
	ErrChannelNotFound     = errors.New("channel not found")
	ErrPermissionDenied    = errors.New("missing permissions")
)
