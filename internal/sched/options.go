package sched

import (
	"io"
	"log/slog"
	"time"

	"ticksched/internal/capacity"
	"ticksched/internal/pairing"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger.With("component", "scheduler")
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = now
	}
}

// WithMeter sets the host cost meter. The default is a ClockMeter on the
// scheduler's clock.
func WithMeter(m capacity.Meter) Option {
	return func(s *Scheduler) {
		s.meter = m
	}
}

// WithEstimator replaces the estimator built from the config.
func WithEstimator(e *capacity.Estimator) Option {
	return func(s *Scheduler) {
		s.capacity = e
	}
}

// WithObserver registers a status event observer. Observers are called in
// registration order.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithNodePool makes the task queue draw heap nodes from pool.
func WithNodePool(pool *pairing.Pool[*Task]) Option {
	return func(s *Scheduler) {
		s.pool = pool
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
