package sched

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"ticksched/internal/capacity"
)

// Config mirrors config.yml. Every value is read once, at construction.
type Config struct {
	FastDecay            float64 `yaml:"fast_decay"`            // 0.025 (by default)
	SlowDecay            float64 `yaml:"slow_decay"`            // 0.01 (by default)
	OpCeiling            int     `yaml:"op_ceiling"`            // 30000 (by default)
	TargetCostMS         float64 `yaml:"target_cost_ms"`        // 0.5 (by default)
	TicksPerUpdate       int64   `yaml:"ticks_per_update"`      // 1 (by default)
	Curve                string  `yaml:"curve"`                 // sqrt (by default)
	TickMS               int     `yaml:"tick_ms"`               // 16 (by default)
	RecheckContinuations bool    `yaml:"recheck_continuations"` // false (by default)
}

// DefaultConfig returns the values used when no file is given.
func DefaultConfig() Config {
	return Config{
		FastDecay:      0.025,
		SlowDecay:      0.01,
		OpCeiling:      30000,
		TargetCostMS:   0.5,
		TicksPerUpdate: 1,
		Curve:          "sqrt",
		TickMS:         16,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only. A
// missing or unreadable file also yields the defaults.
func Load(path string) Config {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig()
	}
	cfg, err := Parse(data)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Parse decodes YAML on top of the defaults and clamps the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := capacity.ParseCurve(cfg.Curve); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	def := DefaultConfig()
	if c.FastDecay <= 0 || c.FastDecay > 1 {
		c.FastDecay = def.FastDecay
	}
	if c.SlowDecay <= 0 || c.SlowDecay > 1 {
		c.SlowDecay = def.SlowDecay
	}
	if c.OpCeiling <= 0 {
		c.OpCeiling = def.OpCeiling
	}
	if c.TargetCostMS <= 0 {
		c.TargetCostMS = def.TargetCostMS
	}
	if c.TicksPerUpdate <= 0 {
		c.TicksPerUpdate = def.TicksPerUpdate
	}
	if c.TickMS <= 0 {
		c.TickMS = def.TickMS
	}
}

// Estimator builds the capacity estimator described by the config.
func (c Config) Estimator() *capacity.Estimator {
	curve, err := capacity.ParseCurve(c.Curve)
	if err != nil {
		curve = capacity.Sqrt
	}
	return capacity.NewEstimator(
		capacity.NewAverager(c.FastDecay),
		capacity.NewAverager(c.SlowDecay),
		c.OpCeiling,
		c.TargetCostMS,
		curve)
}
