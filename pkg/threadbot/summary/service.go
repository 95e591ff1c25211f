package summary

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/telemetry"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

const (
	// DefaultLookback is how many recent messages are scanned for prior
	// digests. Older digests are left in place.
	DefaultLookback = 10

	refreshAllConcurrency = 4
)

// Outcome reports what a Refresh did.
type Outcome string

const (
	Published Outcome = telemetry.ResultPublished
	Skipped   Outcome = telemetry.ResultSkipped
	Failed    Outcome = telemetry.ResultFailed
)

// Config tunes publishing.
type Config struct {
	// Lookback is how many recent destination messages are scanned.
	Lookback int

	// MaxMessageLength splits longer digests into several messages.
	MaxMessageLength int
}

// Service refreshes digests. Refreshes for the same server are
// serialized, so the list-delete-post sequence never interleaves and
// leaves duplicate digests behind; different servers proceed in parallel.
type Service struct {
	store    *tracker.Store
	platform channels.Platform
	cfg      Config
	logger   *slog.Logger

	mapMu   sync.Mutex
	guildMu map[string]*sync.Mutex
}

// NewService creates a Service.
func NewService(store *tracker.Store, platform channels.Platform, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	return &Service{
		store:    store,
		platform: platform,
		cfg:      cfg,
		logger:   logger.With("component", "summary"),
		guildMu:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(guildID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	if m, ok := s.guildMu[guildID]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.guildMu[guildID] = m
	return m
}

// Refresh re-renders guildID's digest and replaces the previous one.
// Failures are logged and reported through the Outcome only.
func (s *Service) Refresh(ctx context.Context, guildID string) Outcome {
	mu := s.lockFor(guildID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	outcome := s.refreshLocked(ctx, guildID)
	telemetry.RecordRefresh(string(outcome), time.Since(start).Seconds())
	return outcome
}

func (s *Service) refreshLocked(ctx context.Context, guildID string) Outcome {
	dest, ok := s.store.SummaryChannel(guildID)
	if !ok {
		return Skipped
	}
	logger := s.logger.With("guild", guildID, "summary_channel", dest)

	text, err := Render(ctx, s.platform, guildID, s.store.ListTracked(guildID), logger)
	if err != nil {
		logger.Error("failed to render thread summary", "error", err)
		return Failed
	}

	if err := s.publish(ctx, dest, text); err != nil {
		if errors.Is(err, channels.ErrPermissionDenied) {
			logger.Warn("missing permissions for thread summary", "error", err)
		} else {
			logger.Error("failed to update thread summary", "error", err)
		}
		return Failed
	}
	logger.Debug("thread summary updated", "length", len(text))
	return Published
}

// publish deletes this bot's messages among the most recent Lookback
// messages in dest, then posts text.
func (s *Service) publish(ctx context.Context, dest, text string) error {
	recent, err := s.platform.ListRecentMessages(ctx, dest, s.cfg.Lookback)
	if err != nil {
		return err
	}
	self := s.platform.SelfID()
	deleted := 0
	for _, m := range recent {
		if m.AuthorID != self {
			continue
		}
		if err := s.platform.DeleteMessage(ctx, dest, m.ID); err != nil {
			telemetry.RecordStaleDeleted(deleted)
			return err
		}
		deleted++
	}
	telemetry.RecordStaleDeleted(deleted)

	for _, chunk := range splitMessage(text, s.cfg.MaxMessageLength) {
		if _, err := s.platform.PostMessage(ctx, dest, chunk); err != nil {
			return err
		}
	}
	return nil
}

// RefreshAll refreshes every server that has a summary channel.
func (s *Service) RefreshAll(ctx context.Context) {
	guilds := s.store.SummaryGuilds()
	if len(guilds) == 0 {
		return
	}
	s.logger.Info("refreshing all thread summaries", "guilds", len(guilds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshAllConcurrency)
	for _, guildID := range guilds {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			s.Refresh(gctx, guildID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("summary refresh interrupted", "error", err)
	}
}
