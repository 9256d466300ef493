package sched

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SucceedOnFirstStep(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := s.Schedule(Define("succeed", PriorityNormal, steps(Succeed(5))), time.Time{})
	require.NoError(t, s.Tick())

	assert.True(t, task.Completed())
	assert.True(t, task.Success())
	assert.False(t, task.Running())
	assert.Equal(t, 5, task.Result())
	assert.Equal(t, 0, s.TaskCount())

	v, ok := ResultAs[int](task)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestScheduler_BodyEndWithoutResult(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := s.Schedule(Define("end", PriorityNormal, steps(Yield())), time.Time{})
	require.NoError(t, s.Tick())

	assert.True(t, task.Completed())
	assert.True(t, task.Success())
	assert.Nil(t, task.Result())
}

func TestScheduler_AwaitTaskNotStarted(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	y := Define("y", PriorityNormal, steps(Yield(), Succeed(7))).NewTask(s)

	var got any
	x := s.Schedule(Define("x", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(AwaitTask(y)) {
			return nil
		}
		got = tc.AwaitedResult()
		assert.Same(t, y, tc.Awaited())
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())

	assert.Equal(t, 7, got)
	assert.True(t, y.Completed())
	assert.True(t, x.Completed())
}

func TestScheduler_AwaitCompletedTaskResumesImmediately(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	done := s.Schedule(Define("done", PriorityNormal, steps(Succeed("ready"))), time.Time{})
	require.NoError(t, s.Tick())
	require.True(t, done.Completed())

	var resumes []TaskID
	s.observers = nil
	recordResumes(&resumes)(s)

	var got any
	x := s.Schedule(Define("x", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(AwaitTask(done)) {
			return nil
		}
		got = tc.AwaitedResult()
		return nil
	})), time.Time{})
	require.NoError(t, s.Tick())

	assert.Equal(t, "ready", got)
	assert.True(t, x.Completed())
	// both steps ran within a single resumption, without a trip through the queue
	assert.Equal(t, []TaskID{x.ID, x.ID}, resumes)
}

func TestScheduler_AwaitDefinition(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	child := Define("child", PriorityHigh, steps(Yield(), Yield(), Succeed(3)))
	parent := s.Schedule(Define("parent", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(AwaitDefinition(child)) {
			return nil
		}
		v, _ := tc.AwaitedResult().(int)
		yield(Succeed(v * 2))
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())

	assert.True(t, parent.Completed())
	assert.Equal(t, 6, parent.Result())
}

func TestScheduler_ThrottleKeepsPosition(t *testing.T) {
	s, _ := newTestScheduler(t, 2)

	var executed []int
	task := s.Schedule(Define("loop", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		for i := 0; i < 10; i++ {
			executed = append(executed, i)
			if !yield(CheckCapacity()) {
				return nil
			}
		}
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())
	assert.Equal(t, []int{0, 1}, executed)
	assert.False(t, task.Completed())
	assert.True(t, task.Running())
	assert.Equal(t, 1, s.ActiveCount())

	require.NoError(t, s.Tick())
	assert.Equal(t, []int{0, 1, 2, 3}, executed, "resumes from step 3, not step 1")

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Tick())
	}
	assert.Len(t, executed, 10)
	assert.True(t, task.Completed())
}

func TestScheduler_SleepTicks(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	for i := 0; i < 9; i++ {
		require.NoError(t, s.Tick())
	}

	task := s.Schedule(Define("sleeper", PriorityNormal, steps(SleepTicks(5), Succeed("woke"))), time.Time{})
	require.NoError(t, s.Tick())
	require.Equal(t, int64(10), s.CurrentTick())
	assert.Equal(t, int64(15), task.TargetTick())

	for s.CurrentTick() < 14 {
		require.NoError(t, s.Tick())
		assert.False(t, task.Completed(), "tick %d", s.CurrentTick())
		assert.Equal(t, 0, s.ActiveCount())
	}

	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
	assert.Equal(t, "woke", task.Result())
}

func TestScheduler_SuspendResumesNextTick(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := s.Schedule(Define("suspend", PriorityNormal, steps(Suspend(), Succeed(1))), time.Time{})
	require.NoError(t, s.Tick())
	assert.False(t, task.Completed())
	assert.Equal(t, 1, s.TaskCount())

	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
}

func TestScheduler_SleepTime(t *testing.T) {
	s, clk := newTestScheduler(t, 100)

	task := s.Schedule(Define("nap", PriorityNormal, steps(SleepTime(10*time.Second), Succeed(1))), time.Time{})
	require.NoError(t, s.Tick())
	assert.False(t, task.Completed())

	clk.Advance(5 * time.Second)
	require.NoError(t, s.Tick())
	assert.False(t, task.Completed())

	clk.Advance(5 * time.Second)
	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
}

func TestScheduler_ScheduleAtFutureTime(t *testing.T) {
	s, clk := newTestScheduler(t, 100)

	task := s.Schedule(Define("later", PriorityNormal, steps(Succeed(1))), clk.Now().Add(time.Minute))
	require.NoError(t, s.Tick())
	assert.False(t, task.Completed())
	assert.Equal(t, 0, s.ActiveCount())

	clk.Advance(time.Minute)
	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
}

func TestScheduler_UnhandledFaultPropagates(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	task := s.Schedule(Define("boom", PriorityNormal, failing(errBoom)), time.Time{})
	err := s.Tick()

	assert.True(t, err == errBoom, "fault must surface unmodified, got %v", err)
	assert.True(t, task.Completed())
	assert.False(t, task.Success())
	assert.True(t, task.Err() == errBoom)
}

func TestScheduler_HandledFault(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	var seen error
	parent := s.Schedule(Define("parent", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(tc.Await(failing(errBoom))) {
			return nil
		}
		if failed := tc.Awaited(); failed.Err() != nil {
			seen = failed.Err()
			failed.MarkHandled()
		}
		yield(Succeed("recovered"))
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())
	assert.ErrorIs(t, seen, errBoom)
	assert.Equal(t, "recovered", parent.Result())
}

func TestScheduler_FaultIgnoredByContinuation(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	var resumed bool
	parent := s.Schedule(Define("parent", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(tc.Await(failing(errBoom))) {
			return nil
		}
		resumed = true
		assert.Nil(t, tc.AwaitedResult())
		return nil
	})), time.Time{})

	err := s.Tick()
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, resumed, "continuations are notified before the fault is raised")
	assert.True(t, parent.Completed())
}

func TestScheduler_FaultRequeuesRemainingWork(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	shared := Define("shared", PriorityNormal, steps(Yield(), Succeed("x"))).NewTask(s)

	// p and q both wait on shared; p then starts a failing sub-task while q
	// is still on the resumption stack
	p := s.Schedule(Define("p", PriorityNormal, steps(AwaitTask(shared), AwaitDefinition(Define("bad", PriorityNormal, failing(errBoom))), Succeed("p"))), time.Time{})
	var got any
	q := s.Schedule(Define("q", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(AwaitTask(shared)) {
			return nil
		}
		got = tc.AwaitedResult()
		yield(Succeed("q"))
		return nil
	})), time.Time{})

	err := s.Tick()
	assert.True(t, err == errBoom, "got %v", err)
	assert.True(t, p.Completed())
	assert.Equal(t, "p", p.Result())

	// q was not lost: it is queued with shared's result already delivered
	assert.False(t, q.Completed())
	assert.True(t, q.Running())
	assert.Equal(t, 1, s.ActiveCount())

	require.NoError(t, s.Tick())
	assert.Equal(t, "x", got)
	assert.Equal(t, "q", q.Result())
}

func TestScheduler_PanicBecomesFailure(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := s.Schedule(Define("panics", PriorityNormal, func(tc *Context) Body {
		return StepFunc(func() (Instruction, error) {
			panic("kaboom")
		})
	}), time.Time{})

	err := s.Tick()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.True(t, task.Completed())
	assert.False(t, task.Success())
}

func TestScheduler_AwaitSelfFails(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := s.Schedule(Define("selfish", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		yield(AwaitTask(tc.Task()))
		return nil
	})), time.Time{})

	err := s.Tick()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.True(t, task.Completed())
}

func TestScheduler_InvalidState(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	def := Define("once", PriorityNormal, steps(Succeed(1)))

	t.Run("resume running task", func(t *testing.T) {
		task := s.Schedule(def, time.Time{})
		assert.ErrorIs(t, s.Resume(task), ErrInvalidState)
		assert.ErrorIs(t, s.ScheduleTask(task), ErrInvalidState)
	})

	t.Run("resume completed task", func(t *testing.T) {
		task := def.NewTask(s)
		require.NoError(t, s.Resume(task))
		require.True(t, task.Completed())

		assert.ErrorIs(t, s.Resume(task), ErrInvalidState)
		assert.ErrorIs(t, s.ScheduleTask(task), ErrInvalidState)
	})

	t.Run("dequeue empty queue", func(t *testing.T) {
		q := NewTaskQueue(nil)
		_, err := q.Dequeue()
		assert.ErrorIs(t, err, ErrEmptyQueue)
	})
}

func TestScheduler_ScheduleTaskOptions(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	task := Define("at-tick", PriorityNormal, steps(Succeed(1))).NewTask(s)
	require.NoError(t, s.ScheduleTask(task, AtTick(3)))

	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	assert.False(t, task.Completed())

	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
}

func TestScheduler_SequenceStrictlyIncreasing(t *testing.T) {
	s, _ := newTestScheduler(t, 50)

	var seqs []uint64
	for i := 0; i < 40; i++ {
		p := Priority(i % 5)
		task := s.Schedule(Define("spin", p, func(tc *Context) Body {
			return StepFunc(func() (Instruction, error) { return Yield(), nil })
		}), time.Time{})
		seqs = append(seqs, task.Seq())
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tick())
	}
	// requeues keep drawing from the same counter
	assert.Equal(t, uint64(40+3*50), s.lastSeq)

	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestScheduler_OrdinalFormula(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	a := s.Schedule(Define("a", PriorityCritical, steps()), time.Time{})
	b := s.Schedule(Define("b", PriorityBackground, steps()), time.Time{})
	c := s.Schedule(Define("c", PriorityNormal, steps()), time.Time{})

	assert.Equal(t, uint64(1+1*1), a.Ordinal())
	assert.Equal(t, uint64(2+16*2), b.Ordinal())
	assert.Equal(t, uint64(3+4*3), c.Ordinal())
}

func TestScheduler_PriorityBiasWithoutStarvation(t *testing.T) {
	s, _ := newTestScheduler(t, 200)

	spin := func(tc *Context) Body {
		return StepFunc(func() (Instruction, error) { return Yield(), nil })
	}
	critical := s.Schedule(Define("critical", PriorityCritical, spin), time.Time{})
	background := s.Schedule(Define("background", PriorityBackground, spin), time.Time{})

	var resumes []TaskID
	recordResumes(&resumes)(s)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Tick())
	}

	counts := map[TaskID]int{}
	for _, id := range resumes {
		counts[id]++
	}
	assert.Equal(t, 1000, len(resumes))
	assert.Greater(t, counts[critical.ID], counts[background.ID])
	assert.Positive(t, counts[background.ID], "lower tiers must still be served")
}

func TestScheduler_YieldRoundRobin(t *testing.T) {
	s, _ := newTestScheduler(t, 6)

	spin := func(tc *Context) Body {
		return StepFunc(func() (Instruction, error) { return Yield(), nil })
	}
	a := s.Schedule(Define("a", PriorityNormal, spin), time.Time{})
	b := s.Schedule(Define("b", PriorityNormal, spin), time.Time{})

	var resumes []TaskID
	recordResumes(&resumes)(s)
	require.NoError(t, s.Tick())

	assert.Equal(t, []TaskID{a.ID, b.ID, a.ID, b.ID, a.ID, b.ID}, resumes)
}

func TestScheduler_ContinuationCapacity(t *testing.T) {
	tests := map[string]struct {
		recheck        bool
		doneAfterTicks int64
	}{
		"notification chain finishes":  {recheck: false, doneAfterTicks: 2},
		"continuation rechecks budget": {recheck: true, doneAfterTicks: 3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.OpCeiling = 1
			cfg.RecheckContinuations = tt.recheck
			s, _ := newTestSchedulerWithConfig(t, cfg)

			parent := s.Schedule(Define("parent", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
				if !yield(tc.Await(steps(Succeed(1)))) {
					return nil
				}
				yield(Succeed(tc.AwaitedResult()))
				return nil
			})), time.Time{})

			for s.CurrentTick() < tt.doneAfterTicks-1 {
				require.NoError(t, s.Tick())
				assert.False(t, parent.Completed(), "tick %d", s.CurrentTick())
			}
			require.NoError(t, s.Tick())
			assert.True(t, parent.Completed())
			assert.Equal(t, 1, parent.Result())
		})
	}
}

func TestScheduler_DeepAwaitChain(t *testing.T) {
	const depth = 5000
	s, _ := newTestScheduler(t, 4*depth)

	var level func(n int) Entry
	level = func(n int) Entry {
		return func(tc *Context) Body {
			awaited := false
			return StepFunc(func() (Instruction, error) {
				if n == 0 {
					return Succeed(0), nil
				}
				if !awaited {
					awaited = true
					return AwaitDefinition(Define("level", PriorityNormal, level(n-1))), nil
				}
				v, _ := tc.AwaitedResult().(int)
				return Succeed(v + 1), nil
			})
		}
	}

	root := s.Schedule(Define("root", PriorityNormal, level(depth)), time.Time{})
	require.NoError(t, s.Tick())

	assert.True(t, root.Completed())
	assert.Equal(t, depth, root.Result())
}

func TestScheduler_ContinuationsRunInOrder(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	shared := Define("shared", PriorityNormal, steps(Yield(), Succeed("v"))).NewTask(s)

	var order []string
	waiter := func(name string) Definition {
		return Define(name, PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
			if !yield(AwaitTask(shared)) {
				return nil
			}
			order = append(order, name)
			return nil
		}))
	}
	s.Schedule(waiter("w1"), time.Time{})
	s.Schedule(waiter("w2"), time.Time{})
	s.Schedule(waiter("w3"), time.Time{})

	require.NoError(t, s.Tick())
	assert.Equal(t, []string{"w1", "w2", "w3"}, order)
}

func TestContext_Run(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	var sub, bad *Task
	var badErr error
	parent := s.Schedule(Define("parent", PriorityHigh, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		var err error
		sub, err = tc.Run(tc.Define("sub", steps(Succeed(11))))
		if err != nil {
			return err
		}
		bad, badErr = tc.Run(tc.Define("bad", failing(errBoom)))
		yield(Succeed(sub.Result()))
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())

	assert.True(t, sub.Success())
	assert.Equal(t, PriorityHigh, sub.Priority)
	assert.ErrorIs(t, badErr, errBoom)
	assert.False(t, bad.Success())
	assert.Equal(t, 11, parent.Result())
}

func TestContext_Arg(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	def := Define("echo", PriorityNormal, func(tc *Context) Body {
		return StepFunc(func() (Instruction, error) {
			return Succeed(tc.Arg()), nil
		})
	})
	a := s.Schedule(def.WithArg("a"), time.Time{})
	b := s.Schedule(def.WithArg("b"), time.Time{})
	require.NoError(t, s.Tick())

	assert.Equal(t, "a", a.Result())
	assert.Equal(t, "b", b.Result())
	assert.Nil(t, def.Arg())
}

func TestCoroutine_ReleasedOnCompletion(t *testing.T) {
	s, _ := newTestScheduler(t, 100)

	released := false
	task := s.Schedule(Define("early", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(Succeed(1)) {
			released = true
			return nil
		}
		t.Error("body resumed after completion")
		return nil
	})), time.Time{})

	require.NoError(t, s.Tick())
	assert.True(t, task.Completed())
	assert.True(t, released)
}

func TestCoroutine_ErrorFailsTask(t *testing.T) {
	s, _ := newTestScheduler(t, 100)
	errBoom := errors.New("boom")

	task := s.Schedule(Define("err", PriorityNormal, Coroutine(func(tc *Context, yield func(Instruction) bool) error {
		if !yield(Yield()) {
			return nil
		}
		return errBoom
	})), time.Time{})

	assert.ErrorIs(t, s.Tick(), errBoom)
	assert.ErrorIs(t, task.Err(), errBoom)
}

func TestDefine_ClampsPriority(t *testing.T) {
	assert.Equal(t, PriorityCritical, Define("x", Priority(-3), steps()).Priority())
	assert.Equal(t, PriorityBackground, Define("x", Priority(99), steps()).Priority())
}
