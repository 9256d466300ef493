// internal/sched/scheduler.go

package sched

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticksched/internal/capacity"
	"ticksched/internal/pairing"
)

// Scheduler runs cooperative tasks inside a per-cycle operation budget. The
// host calls Tick once per slice; tasks give control back at the yield points
// they choose.
//
// Scheduler is not safe for concurrent use. Drive it from a single goroutine,
// for example through a Host.
type Scheduler struct {
	queue     *TaskQueue
	pool      *pairing.Pool[*Task]
	capacity  *capacity.Estimator
	meter     capacity.Meter
	clock     func() time.Time
	logger    *slog.Logger
	observers []Observer

	ticksPerUpdate int64 // scheduling units elapsed per Tick
	recheck        bool  // check capacity before a continuation's first step

	lastSeq uint64
	lastID  uint64
	tick    int64
	now     time.Time
}

// New creates a Scheduler from cfg. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Scheduler {
	cfg.clamp()

	s := &Scheduler{
		clock:          time.Now,
		logger:         discardLogger(),
		ticksPerUpdate: cfg.TicksPerUpdate,
		recheck:        cfg.RecheckContinuations,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.capacity == nil {
		s.capacity = cfg.Estimator()
	}
	if s.meter == nil {
		s.meter = capacity.NewClockMeter(s.clock)
	}
	s.queue = NewTaskQueue(s.pool)
	s.now = s.clock()
	return s
}

// CurrentTick returns the number of cycles run so far.
func (s *Scheduler) CurrentTick() int64 { return s.tick }

// CurrentTime returns the time captured at the start of the current cycle.
func (s *Scheduler) CurrentTime() time.Time { return s.now }

// TaskCount returns the number of queued tasks, pending or ready.
func (s *Scheduler) TaskCount() int { return s.queue.Len() }

// ActiveCount returns the number of tasks ready to run.
func (s *Scheduler) ActiveCount() int { return s.queue.ActiveLen() }

// Budget returns the operation budget of the current cycle.
func (s *Scheduler) Budget() int { return s.capacity.Budget() }

// Estimator exposes the capacity estimator for reporting.
func (s *Scheduler) Estimator() *capacity.Estimator { return s.capacity }

// HasCapacity reports whether the current cycle still has budget.
func (s *Scheduler) HasCapacity() bool {
	return s.capacity.HasCapacity(s.meter.Consumed())
}

// Schedule creates a task from def and queues it to become ready at at. A
// zero at makes it ready right away.
func (s *Scheduler) Schedule(def Definition, at time.Time) *Task {
	t := def.NewTask(s)
	t.targetTime = at
	s.enqueue(t)
	return t
}

// ScheduleOption adjusts the targets of a task being scheduled.
type ScheduleOption func(*Task)

// AtTime makes the task ready once the scheduler's time reaches at.
func AtTime(at time.Time) ScheduleOption {
	return func(t *Task) { t.targetTime = at }
}

// AtTick makes the task ready on the given tick.
func AtTick(tick int64) ScheduleOption {
	return func(t *Task) { t.targetTick = tick }
}

// ScheduleTask queues a task created with Definition.NewTask. Scheduling a
// completed task, or one the scheduler already owns, is an error.
func (s *Scheduler) ScheduleTask(t *Task, opts ...ScheduleOption) error {
	if t.completed {
		return fmt.Errorf("%w: task %d is completed", ErrInvalidState, t.ID)
	}
	if t.running {
		return fmt.Errorf("%w: task %d is already scheduled", ErrInvalidState, t.ID)
	}
	for _, opt := range opts {
		opt(t)
	}
	s.enqueue(t)
	return nil
}

// Resume runs t right away, outside the active queue draw, up to its next
// suspension point. It returns the failure of any task in the resulting
// chain that no continuation handled.
func (s *Scheduler) Resume(t *Task) error {
	if t.completed {
		return fmt.Errorf("%w: task %d is completed", ErrInvalidState, t.ID)
	}
	if t.running {
		return fmt.Errorf("%w: task %d is already running", ErrInvalidState, t.ID)
	}
	t.running = true
	return s.run(t)
}

// Tick runs one cycle: refresh the budget from the cost of the previous
// cycle, promote tasks that became ready, then resume ready tasks while
// budget remains.
func (s *Scheduler) Tick() error {
	s.tick++
	s.now = s.clock()

	s.meter.BeginCycle()
	s.capacity.Refresh(s.ticksPerUpdate, s.meter.LastCycleCost())
	s.queue.AdvanceCycle(s.tick, s.now)
	s.emit(StatusTick, nil)

	for s.HasCapacity() {
		t, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		if err := s.run(t); err != nil {
			return err
		}
	}
	return nil
}

// enqueue assigns a fresh ordinal and hands t to the queue. The ordinal is a
// strictly increasing counter plus a bonus that grows with the tier and the
// queue length, so lower tiers run less often but always eventually.
func (s *Scheduler) enqueue(t *Task) {
	s.lastSeq++
	t.seq = s.lastSeq
	t.ordinal = s.lastSeq + (uint64(1)<<uint(t.Priority))*uint64(s.queue.Len()+1)
	t.running = true
	s.queue.Enqueue(t, s.now, s.tick)
	s.emit(StatusSchedule, t)
}

// requeue makes t ready in the current cycle.
func (s *Scheduler) requeue(t *Task) {
	t.targetTime = s.now
	t.targetTick = s.tick
	s.enqueue(t)
}

// frame is one unit of work on the resumption stack.
type frame struct {
	task *Task
	from *Task // completed dependency whose result task receives
	// fault is checked for a handled mark once its continuations ran
	fault *Task
}

// run resumes t and then every task its progress unblocks. Continuations run
// synchronously and depth-first, as nested calls would, but through an
// explicit stack so long await chains do not grow the goroutine stack.
func (s *Scheduler) run(t *Task) error {
	stack := []frame{{task: t}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.fault != nil {
			if f.fault.handled {
				continue
			}
			return s.abandon(stack, f.fault)
		}
		if f.from != nil {
			f.task.ctx.deliver(f.from)
		}
		stack = s.advance(f.task, f.from != nil, stack)
	}
	return nil
}

// advance steps t until it parks, completes or runs out of budget, pushing
// the tasks to resume next onto stack.
func (s *Scheduler) advance(t *Task, notified bool, stack []frame) []frame {
	for {
		// a continuation's first step finishes the notification chain
		// unless recheck is set
		skipCheck := notified && !s.recheck
		notified = false
		if !skipCheck && !s.HasCapacity() {
			// the body has not moved, so it resumes at the same position
			s.enqueue(t)
			s.emit(StatusThrottle, t)
			s.logger.Debug("task throttled", "task_id", t.ID, "budget", s.capacity.Budget(), "consumed", s.meter.Consumed())
			return stack
		}

		s.emit(StatusResume, t)
		ins, err := step(t.body)
		s.meter.Charge(1)
		if err != nil {
			return s.failed(t, err, stack)
		}

		switch ins.kind {
		case KindEnd, KindSucceed:
			t.succeed(ins.result)
			s.emit(StatusSucceed, t)
			return s.resolve(t, stack)

		case KindCheckCapacity:
			continue

		case KindYield:
			s.requeue(t)
			s.emit(StatusYield, t)
			return stack

		case KindSleepTicks:
			t.targetTime = s.now
			t.targetTick = s.tick + ins.ticks
			s.enqueue(t)
			s.emit(StatusSleep, t)
			return stack

		case KindSleepTime:
			t.targetTime = s.clock().Add(ins.delay)
			t.targetTick = s.tick
			s.enqueue(t)
			s.emit(StatusSleep, t)
			return stack

		case KindAwaitDefinition:
			return s.await(t, ins.def.NewTask(s), stack)

		case KindAwaitTask:
			other := ins.task
			if other == nil || other == t {
				return s.failed(t, fmt.Errorf("%w: task %d awaits itself or nothing", ErrInvalidState, t.ID), stack)
			}
			if other.completed {
				t.ctx.deliver(other)
				continue
			}
			return s.await(t, other, stack)

		default:
			return s.failed(t, fmt.Errorf("%w: unknown instruction %v", ErrInvalidState, ins.kind), stack)
		}
	}
}

// await parks t as a continuation of awaited and starts awaited if nothing
// has yet.
func (s *Scheduler) await(t, awaited *Task, stack []frame) []frame {
	awaited.continuations = append(awaited.continuations, t)
	s.emit(StatusAwait, t)
	s.logger.Debug("task awaiting", "task_id", t.ID, "awaited_id", awaited.ID)

	if !awaited.running {
		awaited.running = true
		stack = append(stack, frame{task: awaited})
	}
	return stack
}

func (s *Scheduler) failed(t *Task, err error, stack []frame) []frame {
	t.fail(err)
	s.emit(StatusFail, t)
	s.logger.Debug("task failed", "task_id", t.ID, "error", err)

	// pushed first so it is checked after every continuation ran
	stack = append(stack, frame{fault: t})
	return s.resolve(t, stack)
}

// resolve pushes t's continuations so that the first one runs first.
func (s *Scheduler) resolve(t *Task, stack []frame) []frame {
	conts := t.continuations
	t.continuations = nil
	for i := len(conts) - 1; i >= 0; i-- {
		stack = append(stack, frame{task: conts[i], from: t})
	}
	return stack
}

// abandon stops the chain at an unhandled fault. Tasks still waiting on the
// stack are queued for the current cycle instead of being lost.
func (s *Scheduler) abandon(stack []frame, fault *Task) error {
	errs := []error{fault.err}
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		switch {
		case f.fault != nil:
			if !f.fault.handled {
				errs = append(errs, f.fault.err)
			}
		case f.task != nil:
			if f.from != nil {
				f.task.ctx.deliver(f.from)
			}
			s.requeue(f.task)
		}
	}

	s.logger.Warn("unhandled task failure", "task_id", fault.ID, "task", fault.Name, "error", fault.err)
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (s *Scheduler) emit(kind StatusKind, t *Task) {
	if len(s.observers) == 0 {
		return
	}
	ev := StatusEvent{
		Time:     s.clock(),
		Tick:     s.tick,
		Kind:     kind,
		Budget:   s.capacity.Budget(),
		Consumed: s.meter.Consumed(),
	}
	if t != nil {
		ev.TaskID = t.ID
		ev.Priority = t.Priority
		ev.Ordinal = t.ordinal
	}
	for _, o := range s.observers {
		o(ev)
	}
}
