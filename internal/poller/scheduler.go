package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrCycleRunning is returned by RunNow when a cycle is already in flight.
var ErrCycleRunning = errors.New("a cycle is already running")

// Scheduler invokes the poller on a fixed schedule. Cycles never overlap: a tick
// that fires while a cycle is still running is dropped, not queued. A failed
// cycle never stops future ticks.
type Scheduler struct {
	poller   *Poller
	schedule string
	logger   *slog.Logger

	// runMu serializes cycles across ticks and manual triggers.
	runMu sync.Mutex

	cron    *cron.Cron
	entryID cron.EntryID

	stateMu sync.Mutex
	last    *CycleSummary
}

func NewScheduler(p *Poller, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if p == nil {
		return nil, fmt.Errorf("poller is required")
	}
	if schedule == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{poller: p, schedule: schedule, logger: logger}, nil
}

// Start begins ticking until the context is cancelled. The schedule accepts cron
// expressions and @every durations.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	entryID, err := s.cron.AddFunc(s.schedule, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule, "next_run", s.NextRun())

	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.runMu.TryLock() {
		s.logger.Info("previous cycle still running; tick dropped")
		return
	}
	defer s.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runLocked(ctx); err != nil {
		s.logger.Error("cycle failed", "error", err)
	}
}

// RunNow runs one cycle outside the normal schedule, for operational testing.
// It shares the scheduler's serialization guarantee and rejects with
// ErrCycleRunning instead of queueing behind an in-flight cycle.
func (s *Scheduler) RunNow(ctx context.Context) (CycleSummary, error) {
	if !s.runMu.TryLock() {
		return CycleSummary{}, ErrCycleRunning
	}
	defer s.runMu.Unlock()
	return s.runLocked(ctx)
}

func (s *Scheduler) runLocked(ctx context.Context) (CycleSummary, error) {
	summary, err := s.poller.RunCycle(ctx)
	s.stateMu.Lock()
	snapshot := summary
	s.last = &snapshot
	s.stateMu.Unlock()
	return summary, err
}

// LastSummary returns a copy of the most recent cycle summary, or nil before the
// first cycle completes.
func (s *Scheduler) LastSummary() *CycleSummary {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.last == nil {
		return nil
	}
	snapshot := *s.last
	return &snapshot
}

// NextRun reports when the next tick fires, or the zero time if the scheduler
// has not been started.
func (s *Scheduler) NextRun() time.Time {
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
