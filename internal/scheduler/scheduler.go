package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

// Runner performs one aggregation run.
type Runner interface {
	Aggregate(ctx context.Context) (model.RunStats, error)
}

// failureWarnAfter is how many failed runs in a row get logged as an error
// instead of a warning.
const failureWarnAfter = 3

// Scheduler runs the aggregator once at start and then again interval after
// each run finishes, so runs never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	failures int
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled and then returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	stats, err := s.runner.Aggregate(ctx)
	if errors.Is(err, context.Canceled) {
		s.logger.Info("run interrupted", "run_id", stats.RunID, "added", stats.Added)
		return
	}
	if err == nil {
		s.failures = 0
		s.logger.Debug("next run scheduled", "at", time.Now().Add(s.interval).Format(time.RFC3339))
		return
	}

	s.failures++
	level := slog.LevelWarn
	if s.failures >= failureWarnAfter {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "run failed", "run_id", stats.RunID, "consecutive_failures", s.failures, "error", err)
}
