package sched

import (
	"fmt"
	"strings"
)

// Priority is the tier of a task. 0 is the most favoured tier; every step down
// doubles the ordinal bonus a task receives when it is (re)scheduled.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBackground
)

const (
	MinPriority = PriorityCritical
	MaxPriority = PriorityBackground
)

var priorityNames = map[Priority]string{
	PriorityCritical:   "critical",
	PriorityHigh:       "high",
	PriorityNormal:     "normal",
	PriorityLow:        "low",
	PriorityBackground: "background",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority resolves a tier name.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

// Priorities lists every tier, most favoured first.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityBackground}
}

func clampPriority(p Priority) Priority {
	if p < MinPriority {
		return MinPriority
	} else if p > MaxPriority {
		return MaxPriority
	}
	return p
}
