package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// TrackResult is the outcome of TrackChannel.
type TrackResult int

const (
	// Tracked means the channel was added and the change persisted.
	Tracked TrackResult = iota
	// AlreadyTracked means nothing changed.
	AlreadyTracked
)

// UntrackResult is the outcome of UntrackChannel.
type UntrackResult int

const (
	// Untracked means the channel was removed and the change persisted.
	Untracked UntrackResult = iota
	// NotTracked means nothing changed.
	NotTracked
)

// ErrCorruptConfig is returned by backends whose stored data cannot be decoded.
var ErrCorruptConfig = errors.New("corrupt tracker configuration")

// Backend persists the configuration record.
type Backend interface {
	// Load returns the stored record. A backend with nothing stored returns
	// an empty record and no error.
	Load() (*Configuration, error)

	// Save replaces the stored record.
	Save(cfg *Configuration) error

	// Close releases backend resources.
	Close() error
}

// Store is the in-memory view of the configuration. Every mutation is
// applied to a copy, persisted, and only then made visible, so a failed
// save leaves both memory and disk at the previous state.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu  sync.RWMutex
	cfg *Configuration
}

// Open loads the record from backend. Load failures are not fatal: the
// store starts from the empty default and logs the cause.
func Open(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "tracker"),
	}
	s.cfg = s.Load()
	return s
}

// Load reads the backend, falling back to an empty record when the
// stored data is missing or unreadable.
func (s *Store) Load() *Configuration {
	cfg, err := s.backend.Load()
	if err != nil {
		s.logger.Warn("tracker config unreadable, starting empty", "error", err)
		return NewConfiguration()
	}
	if cfg == nil {
		return NewConfiguration()
	}
	cfg.normalize()
	return cfg
}

// Save persists cfg and makes it the current record.
func (s *Store) Save(cfg *Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cfg.Clone()
	next.normalize()
	return s.commitLocked(next)
}

// TrackChannel adds channelID to guildID's tracked list.
func (s *Store) TrackChannel(guildID, channelID string) (TrackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.cfg.TrackedChannels[guildID], channelID) {
		return AlreadyTracked, nil
	}
	next := s.cfg.Clone()
	next.TrackedChannels[guildID] = append(next.TrackedChannels[guildID], channelID)
	if err := s.commitLocked(next); err != nil {
		return Tracked, err
	}
	s.logger.Info("channel tracked", "guild", guildID, "channel", channelID)
	return Tracked, nil
}

// UntrackChannel removes channelID from guildID's tracked list.
func (s *Store) UntrackChannel(guildID, channelID string) (UntrackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.cfg.TrackedChannels[guildID], channelID)
	if idx < 0 {
		return NotTracked, nil
	}
	next := s.cfg.Clone()
	next.TrackedChannels[guildID] = slices.Delete(next.TrackedChannels[guildID], idx, idx+1)
	if err := s.commitLocked(next); err != nil {
		return Untracked, err
	}
	s.logger.Info("channel untracked", "guild", guildID, "channel", channelID)
	return Untracked, nil
}

// SetSummaryChannel makes channelID guildID's digest destination. It always
// persists, even when the value is unchanged.
func (s *Store) SetSummaryChannel(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	next.ThreadSummaryChannels[guildID] = channelID
	if err := s.commitLocked(next); err != nil {
		return err
	}
	s.logger.Info("summary channel set", "guild", guildID, "channel", channelID)
	return nil
}

// ListTracked returns guildID's tracked channels in insertion order.
func (s *Store) ListTracked(guildID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.cfg.TrackedChannels[guildID])
	if out == nil {
		out = []string{}
	}
	return out
}

// IsTracked reports whether channelID is tracked in guildID.
func (s *Store) IsTracked(guildID, channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.cfg.TrackedChannels[guildID], channelID)
}

// SummaryChannel returns guildID's digest destination, if configured.
func (s *Store) SummaryChannel(guildID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cfg.ThreadSummaryChannels[guildID]
	return id, ok
}

// SummaryGuilds returns the sorted IDs of servers with a digest destination.
func (s *Store) SummaryGuilds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cfg.ThreadSummaryChannels))
	for guild := range s.cfg.ThreadSummaryChannels {
		out = append(out, guild)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() *Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) commitLocked(next *Configuration) error {
	if err := s.backend.Save(next); err != nil {
		s.logger.Error("failed to persist tracker config", "error", err)
		return fmt.Errorf("save tracker config: %w", err)
	}
	s.cfg = next
	return nil
}
