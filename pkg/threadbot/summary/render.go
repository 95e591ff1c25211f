// Package summary renders the per-server digest of active threads and
// publishes it, replacing the bot's previous digest.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
)

const (
	// NoTrackedText is the whole digest when nothing renders.
	NoTrackedText = "No tracked channels with active threads."

	// NoThreadsText stands in for an empty thread list.
	NoThreadsText = "*No active threads*"
)

// ThreadLister resolves tracked channels and lists a server's active threads.
type ThreadLister interface {
	GetChannel(ctx context.Context, channelID string) (*channels.ChannelInfo, error)
	ListThreads(ctx context.Context, guildID string) ([]channels.ChannelInfo, error)
}

// Render builds the digest for the tracked channels of one server, in
// the given order. Channels that no longer exist are skipped; any other
// lookup failure aborts the render so a partial digest is never posted.
// The server's threads are listed once, on the first resolved channel.
func Render(ctx context.Context, lister ThreadLister, guildID string, channelIDs []string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		lines    []string
		byParent map[string][]string
	)
	for _, id := range channelIDs {
		ch, err := lister.GetChannel(ctx, id)
		if errors.Is(err, channels.ErrChannelNotFound) {
			logger.Debug("tracked channel no longer resolves, skipping", "guild", guildID, "channel", id)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("resolve channel %s: %w", id, err)
		}

		if byParent == nil {
			threads, err := lister.ListThreads(ctx, guildID)
			if err != nil {
				return "", fmt.Errorf("list threads of %s: %w", guildID, err)
			}
			byParent = make(map[string][]string)
			for _, th := range threads {
				byParent[th.ParentID] = append(byParent[th.ParentID], th.Name)
			}
		}

		lines = append(lines, "# "+ch.Name)
		names := byParent[id]
		if len(names) == 0 {
			lines = append(lines, NoThreadsText)
		}
		for _, name := range names {
			lines = append(lines, "• "+name)
		}
		lines = append(lines, "")
	}

	if len(lines) == 0 {
		return NoTrackedText, nil
	}
	return strings.Join(lines, "\n"), nil
}
