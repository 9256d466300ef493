package job

import (
	"log/slog"
	"time"

	"ticksched/internal/sched"
)

// Spinner yields forever, counting one run per resumption in the stats of its
// tier.
func Spinner(stats *Stats) sched.Entry {
	return func(tc *sched.Context) sched.Body {
		p := tc.Priority()
		stats.AddTask(p)
		return sched.StepFunc(func() (sched.Instruction, error) {
			stats.AddRun(p)
			return sched.Yield(), nil
		})
	}
}

// Demo is the root task of the ticksched binary. It starts spinners spread
// evenly over every tier, then keeps awaiting short sub-tasks so the await
// path stays exercised next to the spinners.
func Demo(stats *Stats, spinners int, logger *slog.Logger) sched.Entry {
	tiers := sched.Priorities()
	return sched.Coroutine(func(tc *sched.Context, yield func(sched.Instruction) bool) error {
		for i := 0; i < spinners; i++ {
			def := sched.Define("spinner", tiers[i%len(tiers)], Spinner(stats))
			if _, err := tc.Run(def); err != nil {
				return err
			}
		}
		logger.Info("spinners started", "count", spinners)

		for round := 1; ; round++ {
			if !yield(tc.Await(Countdown(10))) {
				return nil
			}
			logger.Debug("countdown finished", "round", round, "result", tc.AwaitedResult())

			if !yield(tc.Await(Sleep(100 * time.Millisecond))) {
				return nil
			}
			logger.Debug("sleep finished", "round", round, "slept", tc.AwaitedResult())
		}
	})
}
