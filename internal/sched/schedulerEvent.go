// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusTick StatusKind = iota
	StatusSchedule
	StatusResume
	StatusThrottle
	StatusYield
	StatusSleep
	StatusAwait
	StatusSucceed
	StatusFail
)

// StatusEvent is emitted every tick or on key actions
type StatusEvent struct {
	Time     time.Time
	Tick     int64
	Kind     StatusKind
	TaskID   TaskID
	Priority Priority
	Ordinal  uint64
	Budget   int
	Consumed int
}

// Observer receives status events synchronously, on the scheduler's
// goroutine. It must not call back into the scheduler.
type Observer func(StatusEvent)

func (sk StatusKind) String() string {
	switch sk {
	case StatusTick:
		return "Tick"
	case StatusSchedule:
		return "Schedule"
	case StatusResume:
		return "Resume"
	case StatusThrottle:
		return "Throttle"
	case StatusYield:
		return "Yield"
	case StatusSleep:
		return "Sleep"
	case StatusAwait:
		return "Await"
	case StatusSucceed:
		return "Succeed"
	case StatusFail:
		return "Fail"
	default:
		return "Unknown"
	}
}
