package sched

import "time"

// Kind tags an Instruction.
type Kind uint8

const (
	// KindEnd is the zero Instruction: the body has finished without a result.
	KindEnd Kind = iota
	KindSucceed
	KindYield
	KindCheckCapacity
	KindSleepTicks
	KindSleepTime
	KindAwaitDefinition
	KindAwaitTask
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "End"
	case KindSucceed:
		return "Succeed"
	case KindYield:
		return "Yield"
	case KindCheckCapacity:
		return "CheckCapacity"
	case KindSleepTicks:
		return "SleepTicks"
	case KindSleepTime:
		return "SleepTime"
	case KindAwaitDefinition:
		return "AwaitDefinition"
	case KindAwaitTask:
		return "AwaitTask"
	default:
		return "Unknown"
	}
}

// Instruction is what a task body produces at a suspension point. It tells
// the scheduler how and when to resume the task. Instructions are immutable;
// build them with the constructors below.
type Instruction struct {
	kind   Kind
	result any
	ticks  int64
	delay  time.Duration
	def    *Definition
	task   *Task
}

// End reports that the body finished without a result.
func End() Instruction { return Instruction{} }

// Succeed completes the task with result.
func Succeed(result any) Instruction { return Instruction{kind: KindSucceed, result: result} }

// Yield lets other ready tasks run before this one resumes.
func Yield() Instruction { return Instruction{kind: KindYield} }

// CheckCapacity re-tests the cycle budget without giving up the turn.
func CheckCapacity() Instruction { return Instruction{kind: KindCheckCapacity} }

// SleepTicks resumes the task n cycles from now.
func SleepTicks(n int64) Instruction {
	if n < 0 {
		n = 0
	}
	return Instruction{kind: KindSleepTicks, ticks: n}
}

// Suspend resumes the task on the next cycle.
func Suspend() Instruction { return SleepTicks(1) }

// SleepTime resumes the task once d has elapsed.
func SleepTime(d time.Duration) Instruction {
	if d < 0 {
		d = 0
	}
	return Instruction{kind: KindSleepTime, delay: d}
}

// AwaitDefinition starts a new task from def and resumes the caller with its
// result once it completes.
func AwaitDefinition(def Definition) Instruction {
	return Instruction{kind: KindAwaitDefinition, def: &def}
}

// AwaitTask resumes the caller with the result of task once it completes.
func AwaitTask(task *Task) Instruction { return Instruction{kind: KindAwaitTask, task: task} }

// Kind returns the instruction tag.
func (i Instruction) Kind() Kind { return i.kind }

// Result returns the value carried by Succeed.
func (i Instruction) Result() any { return i.result }

// Ticks returns the SleepTicks distance.
func (i Instruction) Ticks() int64 { return i.ticks }

// Delay returns the SleepTime duration.
func (i Instruction) Delay() time.Duration { return i.delay }

// Definition returns the definition carried by AwaitDefinition.
func (i Instruction) Definition() *Definition { return i.def }

// Task returns the task carried by AwaitTask.
func (i Instruction) Task() *Task { return i.task }
