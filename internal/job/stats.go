package job

import (
	"cmp"
	"fmt"
	"io"

	"github.com/emirpasic/gods/maps/treemap"

	"ticksched/internal/sched"
)

// TierStats counts the spinners of one priority tier and how often they ran.
type TierStats struct {
	Tasks int
	Runs  int64
}

// Stats collects TierStats keyed by priority, most favoured tier first. It is
// updated from task bodies, so only the scheduler goroutine may write to it.
type Stats struct {
	tiers *treemap.Map
}

func NewStats() *Stats {
	return &Stats{
		tiers: treemap.NewWith(func(a, b interface{}) int {
			return cmp.Compare(a.(sched.Priority), b.(sched.Priority))
		}),
	}
}

func (s *Stats) tier(p sched.Priority) *TierStats {
	if v, ok := s.tiers.Get(p); ok {
		return v.(*TierStats)
	}
	ts := &TierStats{}
	s.tiers.Put(p, ts)
	return ts
}

// AddTask registers one more task for tier p.
func (s *Stats) AddTask(p sched.Priority) { s.tier(p).Tasks++ }

// AddRun records one resumption of a task in tier p.
func (s *Stats) AddRun(p sched.Priority) { s.tier(p).Runs++ }

// Tier returns a copy of the counters of p.
func (s *Stats) Tier(p sched.Priority) TierStats {
	if v, ok := s.tiers.Get(p); ok {
		return *v.(*TierStats)
	}
	return TierStats{}
}

// TotalRuns sums the runs of every tier.
func (s *Stats) TotalRuns() int64 {
	var n int64
	s.Each(func(_ sched.Priority, ts TierStats) { n += ts.Runs })
	return n
}

// Each calls fn for every tier seen so far, in priority order.
func (s *Stats) Each(fn func(p sched.Priority, ts TierStats)) {
	it := s.tiers.Iterator()
	for it.Next() {
		fn(it.Key().(sched.Priority), *it.Value().(*TierStats))
	}
}

// Report writes one line per tier with the runs per task and the share of
// all runs.
func (s *Stats) Report(w io.Writer) error {
	total := s.TotalRuns()
	if _, err := fmt.Fprintf(w, "%-12s %6s %10s %10s %7s\n", "priority", "tasks", "runs", "runs/task", "share"); err != nil {
		return err
	}
	var err error
	s.Each(func(p sched.Priority, ts TierStats) {
		if err != nil {
			return
		}
		perTask, share := 0.0, 0.0
		if ts.Tasks > 0 {
			perTask = float64(ts.Runs) / float64(ts.Tasks)
		}
		if total > 0 {
			share = 100 * float64(ts.Runs) / float64(total)
		}
		_, err = fmt.Fprintf(w, "%-12s %6d %10d %10.1f %6.1f%%\n", p, ts.Tasks, ts.Runs, perTask, share)
	})
	return err
}
