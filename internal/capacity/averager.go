// Package capacity estimates how much work the scheduler may perform in the
// current cycle from a smoothed history of measured cycle costs.
package capacity

import "math"

// Averager is an exponentially decaying moving average. Decay is weighted by
// elapsed scheduling units rather than wall time, so a slower host cadence
// does not distort the signal.
type Averager struct {
	decay float64
	value float64
}

// NewAverager creates an averager. Lower decay is more stable, higher decay
// is more responsive.
func NewAverager(decay float64) *Averager {
	return &Averager{decay: decay}
}

// Sample folds observation into the average after elapsed units and returns
// the new value.
func (a *Averager) Sample(elapsed int64, observation float64) float64 {
	a.value = a.value*math.Pow(1-a.decay, float64(elapsed)) + observation*a.decay
	return a.value
}

// Value returns the current average.
func (a *Averager) Value() float64 { return a.value }

// Decay returns the configured decay constant.
func (a *Averager) Decay() float64 { return a.decay }
