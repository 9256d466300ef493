package job

import (
	"time"

	"ticksched/internal/sched"
)

// Sleep returns a task body that parks for d without holding the scheduler,
// then succeeds with the time it actually slept, as seen by the scheduler.
func Sleep(d time.Duration) sched.Entry {
	return func(tc *sched.Context) sched.Body {
		var start time.Time
		parked := false
		return sched.StepFunc(func() (sched.Instruction, error) {
			if !parked {
				parked = true
				start = tc.Now()
				return sched.SleepTime(d), nil
			}
			return sched.Succeed(tc.Now().Sub(start)), nil
		})
	}
}

// Countdown yields n times, then succeeds with n.
func Countdown(n int) sched.Entry {
	return func(tc *sched.Context) sched.Body {
		left := n
		return sched.StepFunc(func() (sched.Instruction, error) {
			if left <= 0 {
				return sched.Succeed(n), nil
			}
			left--
			return sched.Yield(), nil
		})
	}
}
