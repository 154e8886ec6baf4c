package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

// Scheduler owns the recurring poll job and the manual trigger path.
// Manual runs go straight through the runner and never touch the timer.
type Scheduler struct {
	driver ports.Scheduler
	runner ports.CycleRunner
	logger *slog.Logger
}

// NewScheduler builds the scheduling facade over a tick driver.
func NewScheduler(driver ports.Scheduler, runner ports.CycleRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start begins recurring polling. Each tick runs one cycle and logs its
// statistics; a failed cycle never stops the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runner == nil {
		return fmt.Errorf("no cycle runner configured")
	}
	return s.driver.Start(ctx, func() {
		stats, err := s.runner.RunCycle(ctx)
		if err != nil {
			s.logger.Error("poll cycle failed", "error", err)
			return
		}
		s.logCycle(stats)
	})
}

// TriggerManual runs one cycle immediately, regardless of whether the
// recurring schedule is active.
func (s *Scheduler) TriggerManual(ctx context.Context) (domain.CycleStats, error) {
	if s.runner == nil {
		return domain.CycleStats{}, fmt.Errorf("no cycle runner configured")
	}
	s.logger.Info("manual poll triggered")
	stats, err := s.runner.RunCycle(ctx)
	if err != nil {
		return stats, err
	}
	s.logCycle(stats)
	return stats, nil
}

// Stop halts recurring polling.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}

// Running reports whether the recurring schedule is active.
func (s *Scheduler) Running() bool {
	return s.driver.Running()
}

// NextRun returns the next scheduled tick, or the zero time when stopped.
func (s *Scheduler) NextRun() time.Time {
	return s.driver.NextRun()
}

func (s *Scheduler) logCycle(stats domain.CycleStats) {
	s.logger.Info("poll cycle finished",
		"tweets_fetched", stats.Fetched,
		"issues_created", stats.Created,
		"duplicates_skipped", stats.DuplicatesSkipped,
		"errors", stats.Errors,
		"pending_location", stats.PendingLocation,
	)
}
