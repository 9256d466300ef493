package capacity

import "time"

// Meter reports the cost consumed by the host.
type Meter interface {
	// BeginCycle closes the previous cycle and starts a new one.
	BeginCycle()
	// Charge records ops operations spent in the current cycle.
	Charge(ops int)
	// LastCycleCost returns the cost of the previous cycle, in the same unit
	// as the estimator target.
	LastCycleCost() float64
	// Consumed returns the operations spent so far in the current cycle.
	Consumed() int
}

// ClockMeter counts charged operations and measures the wall time spent
// between the start of a cycle and its last charge, in milliseconds.
type ClockMeter struct {
	now func() time.Time

	started  bool
	begin    time.Time
	lastWork time.Time
	ops      int
	lastCost float64
}

// NewClockMeter creates a meter; a nil now uses time.Now.
func NewClockMeter(now func() time.Time) *ClockMeter {
	if now == nil {
		now = time.Now
	}
	return &ClockMeter{now: now}
}

func (m *ClockMeter) BeginCycle() {
	t := m.now()
	if m.started {
		m.lastCost = float64(m.lastWork.Sub(m.begin)) / float64(time.Millisecond)
	}
	m.started = true
	m.begin = t
	m.lastWork = t
	m.ops = 0
}

func (m *ClockMeter) Charge(ops int) {
	m.ops += ops
	m.lastWork = m.now()
}

func (m *ClockMeter) LastCycleCost() float64 { return m.lastCost }

func (m *ClockMeter) Consumed() int { return m.ops }
