package sched

import (
	"testing"
	"time"
)

// testMeter charges one unit per step and reports a fixed previous cost, so
// the budget equals the configured ceiling every cycle.
type testMeter struct {
	ops  int
	cost float64
}

func (m *testMeter) BeginCycle()            { m.ops = 0 }
func (m *testMeter) Charge(ops int)         { m.ops += ops }
func (m *testMeter) LastCycleCost() float64 { return m.cost }
func (m *testMeter) Consumed() int          { return m.ops }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler(t *testing.T, ceiling int, opts ...Option) (*Scheduler, *fakeClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OpCeiling = ceiling
	return newTestSchedulerWithConfig(t, cfg, opts...)
}

func newTestSchedulerWithConfig(t *testing.T, cfg Config, opts ...Option) (*Scheduler, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clk.Now), WithMeter(&testMeter{})}
	return New(cfg, append(base, opts...)...), clk
}

// steps returns an entry whose body yields ins in order, then ends.
func steps(ins ...Instruction) Entry {
	return func(tc *Context) Body {
		i := 0
		return StepFunc(func() (Instruction, error) {
			if i >= len(ins) {
				return End(), nil
			}
			i++
			return ins[i-1], nil
		})
	}
}

// failing returns an entry whose first step fails with err.
func failing(err error) Entry {
	return func(tc *Context) Body {
		return StepFunc(func() (Instruction, error) {
			return Instruction{}, err
		})
	}
}

// recordResumes collects the IDs of resumed tasks in order.
func recordResumes(ids *[]TaskID) Option {
	return WithObserver(func(ev StatusEvent) {
		if ev.Kind == StatusResume {
			*ids = append(*ids, ev.TaskID)
		}
	})
}
