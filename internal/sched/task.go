package sched

import "time"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// Definition is an immutable blueprint for tasks: an entry point, a priority
// tier and an optional frozen argument.
type Definition struct {
	name     string
	entry    Entry
	priority Priority
	arg      any
}

// Define creates a definition. The priority is clamped into the legal range.
func Define(name string, priority Priority, entry Entry) Definition {
	return Definition{
		name:     name,
		entry:    entry,
		priority: clampPriority(priority),
	}
}

// WithArg returns a copy of d that hands arg to every task it creates.
func (d Definition) WithArg(arg any) Definition {
	d.arg = arg
	return d
}

func (d Definition) Name() string       { return d.name }
func (d Definition) Priority() Priority { return d.priority }
func (d Definition) Arg() any           { return d.arg }

// NewTask manufactures a fresh task and its context. The task is not
// scheduled.
func (d Definition) NewTask(s *Scheduler) *Task {
	s.lastID++
	t := &Task{
		ID:         TaskID(s.lastID),
		Name:       d.name,
		Priority:   d.priority,
		targetTime: s.now,
		targetTick: s.tick,
	}
	t.ctx = &Context{
		sched:    s,
		task:     t,
		priority: d.priority,
		arg:      d.arg,
	}
	t.body = d.entry(t.ctx)
	return t
}

// Task is one resumable unit of work. Once scheduled it is owned by the
// scheduler; other code only reads it.
type Task struct {
	ID       TaskID
	Name     string
	Priority Priority

	ordinal    uint64 // active queue key, biased by priority and load
	seq        uint64 // strictly increasing tie-breaker
	targetTime time.Time
	targetTick int64

	running   bool
	completed bool
	success   bool
	handled   bool
	result    any
	err       error

	continuations []*Task

	body Body
	ctx  *Context
}

// Ordinal returns the priority ordinal assigned at the last (re)schedule.
func (t *Task) Ordinal() uint64 { return t.ordinal }

// Seq returns the sequence number assigned at the last (re)schedule.
func (t *Task) Seq() uint64 { return t.seq }

func (t *Task) TargetTime() time.Time { return t.targetTime }
func (t *Task) TargetTick() int64     { return t.targetTick }

// Running reports whether the task is scheduled, executing or awaiting.
func (t *Task) Running() bool { return t.running }

func (t *Task) Completed() bool { return t.completed }
func (t *Task) Success() bool   { return t.success }
func (t *Task) Result() any     { return t.result }

// Err returns the failure captured when the task failed.
func (t *Task) Err() error { return t.err }

// MarkHandled tells the scheduler that a continuation dealt with the task's
// failure, so it is not returned to the host.
func (t *Task) MarkHandled() { t.handled = true }

func (t *Task) Handled() bool { return t.handled }

// Context returns the task's execution context.
func (t *Task) Context() *Context { return t.ctx }

// ResultAs returns the task result converted to T.
func ResultAs[T any](t *Task) (T, bool) {
	v, ok := t.result.(T)
	return v, ok
}

func (t *Task) succeed(result any) {
	t.running = false
	t.completed = true
	t.success = true
	t.result = result
	t.release()
}

func (t *Task) fail(err error) {
	t.running = false
	t.completed = true
	t.success = false
	t.err = err
	t.release()
}

func (t *Task) release() {
	if r, ok := t.body.(releaser); ok {
		r.Release()
	}
}
