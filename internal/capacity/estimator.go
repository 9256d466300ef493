package capacity

import "math"

// Estimator turns the fast and slow cost averages into a per-cycle operation
// budget. The fast average reacts to spikes; the slow one resists oscillation
// and dominates whenever it is larger.
type Estimator struct {
	fast    *Averager
	slow    *Averager
	ceiling int
	target  float64
	curve   Curve

	budget int
}

// NewEstimator creates an estimator. ceiling is the absolute operation limit
// per cycle and target the maximum acceptable cycle cost. The budget starts at
// the full ceiling until the first Refresh.
func NewEstimator(fast, slow *Averager, ceiling int, target float64, curve Curve) *Estimator {
	if curve == nil {
		curve = Sqrt
	}
	return &Estimator{
		fast:    fast,
		slow:    slow,
		ceiling: ceiling,
		target:  target,
		curve:   curve,
		budget:  ceiling,
	}
}

// Refresh feeds the last cycle cost into both averages and recomputes the
// budget for the cycle that is about to start.
func (e *Estimator) Refresh(elapsed int64, lastCycleCost float64) int {
	avg := math.Max(
		e.fast.Sample(elapsed, lastCycleCost),
		e.slow.Sample(elapsed, lastCycleCost))

	e.budget = e.budgetFor(avg)
	return e.budget
}

func (e *Estimator) budgetFor(avg float64) int {
	if e.target <= 0 {
		return 0
	}
	pct := math.Max(e.target-avg, 0) / e.target
	pct = math.Min(math.Max(e.curve(pct), 0), 1)
	return int(float64(e.ceiling) * pct)
}

// HasCapacity reports whether consumed operations are still below the budget.
func (e *Estimator) HasCapacity(consumed int) bool {
	return consumed < e.budget
}

// Budget returns the operation budget of the current cycle.
func (e *Estimator) Budget() int { return e.budget }

// Ceiling returns the absolute operation ceiling.
func (e *Estimator) Ceiling() int { return e.ceiling }

// FastAverage returns the responsive cost average.
func (e *Estimator) FastAverage() float64 { return e.fast.Value() }

// SlowAverage returns the stable cost average.
func (e *Estimator) SlowAverage() float64 { return e.slow.Value() }
