// Package sweeper periodically expires lapsed subscriptions in storage.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is used when no interval is configured
const DefaultInterval = 15 * time.Minute

// Sweeper expires stored ACTIVE subscriptions whose end date has passed
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler runs a Sweeper on a fixed interval
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu           sync.Mutex
	running      bool
	lastRun      time.Time
	lastExpired  int64
	runCount     int64
	errorCount   int64
	totalExpired int64
}

// NewScheduler creates a new scheduler; a non-positive interval selects DefaultInterval.
func NewScheduler(sweeper Sweeper, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With(slog.String("component", "sweeper")),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick until ctx is done or
// Stop is called. It blocks.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("already running")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer s.markStopped()

	s.log.Info("starting", "interval", s.interval)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, stopping")
			return
		case <-s.stopCh:
			s.log.Info("stop signal received")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop signals the scheduler to stop and waits for the current sweep to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.log.Info("stopped gracefully")
	case <-time.After(30 * time.Second):
		s.log.Warn("stop timed out")
	}
}

func (s *Scheduler) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	close(s.doneCh)
}

// RunOnce performs a single sweep and records its outcome
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()

	n, err := s.sweeper.SweepExpired(ctx)

	s.mu.Lock()
	s.lastRun = start
	s.runCount++
	if err != nil {
		s.errorCount++
	} else {
		s.lastExpired = n
		s.totalExpired += n
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("sweep failed", "error", err)
		return
	}
	s.log.Debug("sweep completed", "expired", n, "duration", time.Since(start).Round(time.Millisecond))
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats contains scheduler statistics
type Stats struct {
	Running      bool          `json:"running"`
	Interval     time.Duration `json:"interval"`
	LastRun      time.Time     `json:"last_run"`
	LastExpired  int64         `json:"last_expired"`
	RunCount     int64         `json:"run_count"`
	ErrorCount   int64         `json:"error_count"`
	TotalExpired int64         `json:"total_expired"`
}

// GetStats returns scheduler statistics
func (s *Scheduler) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Running:      s.running,
		Interval:     s.interval,
		LastRun:      s.lastRun,
		LastExpired:  s.lastExpired,
		RunCount:     s.runCount,
		ErrorCount:   s.errorCount,
		TotalExpired: s.totalExpired,
	}
}
