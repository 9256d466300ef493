package capacity

import (
	"fmt"
	"math"
	"strings"
)

// Curve reshapes a remaining-capacity fraction in [0, 1]. Every curve maps 0
// to 0 and 1 to 1 and is monotonic in between.
type Curve func(pct float64) float64

var (
	// Linear grants capacity in direct proportion to headroom.
	Linear Curve = func(pct float64) float64 { return pct }
	// Sine eases towards full capacity.
	Sine Curve = func(pct float64) float64 { return math.Sin(pct * math.Pi * 0.5) }
	// Square is conservative: capacity drops quickly as cost rises.
	Square Curve = func(pct float64) float64 { return math.Pow(pct, 2) }
	// Sqrt grants generously until the cost is close to the target.
	Sqrt Curve = func(pct float64) float64 { return math.Sqrt(pct) }
)

var curves = map[string]Curve{
	"linear": Linear,
	"sine":   Sine,
	"square": Square,
	"sqrt":   Sqrt,
}

// ParseCurve returns the named curve.
func ParseCurve(name string) (Curve, error) {
	c, ok := curves[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("capacity: unknown curve %q", name)
	}
	return c, nil
}
