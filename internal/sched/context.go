package sched

import "time"

// Context is the per-task handle passed to a task body.
type Context struct {
	sched    *Scheduler
	task     *Task
	priority Priority
	arg      any

	awaitedResult any
	awaited       *Task
}

func (c *Context) Priority() Priority    { return c.priority }
func (c *Context) Scheduler() *Scheduler { return c.sched }
func (c *Context) Task() *Task           { return c.task }

// Arg returns the argument frozen into the task's definition.
func (c *Context) Arg() any { return c.arg }

// AwaitedResult returns the result of the task this one last awaited.
func (c *Context) AwaitedResult() any { return c.awaitedResult }

// Awaited returns the task this one last awaited, so a continuation can
// inspect its failure and mark it handled.
func (c *Context) Awaited() *Task { return c.awaited }

// HasCapacity reports whether the current cycle still has budget.
func (c *Context) HasCapacity() bool { return c.sched.HasCapacity() }

// Tick returns the scheduler's current tick.
func (c *Context) Tick() int64 { return c.sched.tick }

// Now returns the scheduler's current time.
func (c *Context) Now() time.Time { return c.sched.now }

// Define creates a definition that inherits this task's priority.
func (c *Context) Define(name string, entry Entry) Definition {
	return Define(name, c.priority, entry)
}

// Await starts entry as a sub-task at this task's priority and resumes the
// caller with its result.
func (c *Context) Await(entry Entry) Instruction {
	return AwaitDefinition(c.Define(c.task.Name, entry))
}

// Run creates a sub-task from def and runs it right away, up to its first
// suspension point. The returned error is the sub-task's failure when nothing
// handled it.
func (c *Context) Run(def Definition) (*Task, error) {
	t := def.NewTask(c.sched)
	return t, c.sched.Resume(t)
}

func (c *Context) deliver(from *Task) {
	c.awaited = from
	c.awaitedResult = from.result
}
