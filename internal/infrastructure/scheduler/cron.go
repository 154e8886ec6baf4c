package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"CivicScanner/internal/ports"
)

// CronScheduler runs the poll job on a fixed interval. The cron chain
// drops ticks that fire while a cycle is still in flight, so at most one
// execution is ever active.
type CronScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a driver ticking every interval.
func NewCronScheduler(interval time.Duration, logger *slog.Logger) *CronScheduler {
	return &CronScheduler{interval: interval, logger: logger}
}

// Start registers the job and begins ticking. Calling Start on a running
// scheduler is a no-op.
func (s *CronScheduler) Start(_ context.Context, job func()) error {
	if job == nil {
		return fmt.Errorf("scheduler job is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	cronLogger := &slogCronLogger{logger: s.logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)))

	entryID, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), job)
	if err != nil {
		return fmt.Errorf("register poll job: %w", err)
	}

	s.cron = c
	s.entryID = entryID
	c.Start()
	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop cancels the recurring job without waiting for an in-flight cycle.
func (s *CronScheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("scheduler stopped")
	return nil
}

// Running reports whether the recurring job is registered.
func (s *CronScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun returns the next scheduled tick, or the zero time when stopped.
func (s *CronScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// slogCronLogger adapts slog to the cron logging interface so skipped
// overlapping ticks show up in our own log stream.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
