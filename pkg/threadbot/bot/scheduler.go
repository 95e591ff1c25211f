package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is what the scheduler triggers.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Scheduler periodically refreshes every digest. Thread archival does not
// always reach the bot as an event, so this keeps digests from drifting.
type Scheduler struct {
	schedule  string
	refresher Refresher
	timeout   time.Duration
	logger    *slog.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates schedule and returns a stopped scheduler.
// An empty schedule yields a scheduler whose Start is a no-op.
func NewScheduler(schedule string, refresher Refresher, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	s := &Scheduler{
		schedule:  schedule,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger.With("component", "scheduler"),
	}
	if schedule == "" {
		return s, nil
	}

	s.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
	)), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing the schedule until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cron == nil {
		s.logger.Info("periodic summary refresh disabled")
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
}

// Stop halts the schedule and waits for a running refresh to return.
func (s *Scheduler) Stop() {
	if s.cron == nil || s.cancel == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	s.logger.Debug("scheduled summary refresh")
	s.refresher.RefreshAll(ctx)
}
