package sched

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Host drives a Scheduler the way an external host would: one Tick per clock
// tick, all on one goroutine. Other goroutines hand work over through Submit.
type Host struct {
	sched    *Scheduler
	interval time.Duration
	ingress  chan Definition
	limiter  *rate.Limiter // nil means unlimited
	logger   *slog.Logger
}

// NewHost creates a host ticking s every interval.
func NewHost(s *Scheduler, interval time.Duration, logger *slog.Logger) *Host {
	if logger == nil {
		logger = discardLogger()
	}
	return &Host{
		sched:    s,
		interval: interval,
		ingress:  make(chan Definition, 256),
		logger:   logger.With("component", "host"),
	}
}

// LimitSubmissions caps Submit at perSecond definitions with the given
// burst. Call it before Submit is used from other goroutines.
func (h *Host) LimitSubmissions(perSecond float64, burst int) {
	h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Submit queues def to be scheduled before the next tick. It blocks while the
// submission rate is exceeded or the ingress buffer is full.
func (h *Host) Submit(ctx context.Context, def Definition) error {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	select {
	case h.ingress <- def:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks the scheduler until ctx is cancelled or a task failure goes
// unhandled.
func (h *Host) Run(ctx context.Context) error {
	clock := NewTickClock(1)
	clock.Start(h.interval)
	defer clock.Stop()

	h.logger.Info("host started", "interval", h.interval)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("host stopping (context cancelled)", "ticks", h.sched.CurrentTick(), "fired", clock.Fired(), "dropped", clock.Dropped())
			return ctx.Err()
		case def := <-h.ingress:
			t := h.sched.Schedule(def, time.Time{})
			h.logger.Debug("task submitted", "task_id", t.ID, "task", t.Name, "priority", t.Priority)
		case at, ok := <-clock.C:
			if !ok {
				return nil
			}
			if lag := time.Since(at); lag > h.interval {
				h.logger.Debug("host behind clock", "lag", lag)
			}
			if err := h.sched.Tick(); err != nil {
				h.logger.Error("tick error", "tick", h.sched.CurrentTick(), "error", err)
				return err
			}
		}
	}
}
