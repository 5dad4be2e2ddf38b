// Package sweeper removes expired rate-limit records on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

// DefaultSchedule runs a sweep every five minutes
const DefaultSchedule = "*/5 * * * *"

// Sweeper periodically calls Cleanup on a rate-limit store
type Sweeper struct {
	store    ratelimit.Store
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
	now      func() time.Time
	onSweep  func(removed int)

	mu      sync.Mutex
	running bool
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithObserver is called after every successful sweep with the number of removed records
func WithObserver(fn func(removed int)) Option {
	return func(s *Sweeper) { s.onSweep = fn }
}

// New creates a sweeper; an empty schedule disables it
func New(store ratelimit.Store, schedule string, logger *zap.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With(zap.String("component", "sweeper")),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start schedules the sweep. The job stops when ctx is cancelled or Stop is called.
//
// Common schedules:
//   - "*/5 * * * *" every five minutes
//   - "@hourly"
//   - "@every 30s"
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("Sweep schedule not configured, skipping")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Sweeper started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep runs one cleanup immediately
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.Cleanup(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep rate limit store: %w", err)
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
	return removed, nil
}

func (s *Sweeper) run(ctx context.Context) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("Scheduled sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Scheduled sweep completed", zap.Int("removed_count", removed))
	} else {
		s.logger.Debug("Scheduled sweep completed, nothing to remove")
	}
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("Sweeper stopped")
	}
}

// IsRunning reports whether the schedule is active
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
