// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a cycle function aligned to candle-close boundaries:
// each run fires at a whole multiple of the interval plus a small skew
// that gives the broker time to finalize the candle.
type Scheduler struct {
	interval       time.Duration
	skew           time.Duration
	runImmediately bool
	logger         *zap.Logger
}

// New builds a scheduler. runImmediately triggers one cycle right at
// startup before aligning to the next boundary.
func New(interval, skew time.Duration, runImmediately bool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval:       interval,
		skew:           skew,
		runImmediately: runImmediately,
		logger:         logger.Named("scheduler"),
	}
}

// NextRun returns the first instant after now that sits on an interval
// boundary shifted by skew.
func NextRun(now time.Time, interval, skew time.Duration) time.Time {
	return now.Add(-skew).Truncate(interval).Add(interval).Add(skew)
}

// Run executes the cycle function on every boundary until the context is
// cancelled. A cycle in flight always finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context, cycle func(context.Context)) error {
	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("skew", s.skew))

	if s.runImmediately {
		cycle(ctx)
	}

	for {
		next := NextRun(time.Now(), s.interval, s.skew)
		wait := time.Until(next)
		s.logger.Info("Next cycle scheduled",
			zap.Time("at", next),
			zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			cycle(ctx)
		}
	}
}
