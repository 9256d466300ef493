package sched

import (
	"cmp"
	"time"

	"github.com/emirpasic/gods/lists/arraylist"

	"ticksched/internal/pairing"
)

// TaskQueue routes tasks between a time-ordered pending heap, a tick-ordered
// pending heap, a one-tick holding list and the active heap ordered by
// priority ordinal. A task sits in at most one of them.
type TaskQueue struct {
	pendingTime *pairing.Heap[*Task]
	pendingTick *pairing.Heap[*Task]
	active      *pairing.Heap[*Task]
	nextTick    *arraylist.List
}

// NewTaskQueue creates a queue whose three heaps share pool. A nil pool gives
// the queue a private one.
func NewTaskQueue(pool *pairing.Pool[*Task]) *TaskQueue {
	if pool == nil {
		pool = pairing.NewPool[*Task]()
	}
	return &TaskQueue{
		pendingTime: pairing.New(byTargetTime, pool),
		pendingTick: pairing.New(byTargetTick, pool),
		active:      pairing.New(byOrdinal, pool),
		nextTick:    arraylist.New(),
	}
}

func byTargetTime(a, b *Task) int { return a.targetTime.Compare(b.targetTime) }

func byTargetTick(a, b *Task) int { return cmp.Compare(a.targetTick, b.targetTick) }

func byOrdinal(a, b *Task) int {
	if c := cmp.Compare(a.ordinal, b.ordinal); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// Len returns the number of queued tasks across all queues.
func (q *TaskQueue) Len() int {
	return q.pendingTime.Len() + q.pendingTick.Len() + q.active.Len() + q.nextTick.Size()
}

// ActiveLen returns the number of tasks ready to run.
func (q *TaskQueue) ActiveLen() int { return q.active.Len() }

// Enqueue classifies t against the current cycle: a future target time goes
// to the time heap, a target tick more than one cycle away to the tick heap,
// exactly one cycle away to the holding list, anything else is ready.
func (q *TaskQueue) Enqueue(t *Task, now time.Time, tick int64) {
	switch {
	case t.targetTime.After(now):
		q.pendingTime.Insert(t)
	case t.targetTick > tick+1:
		q.pendingTick.Insert(t)
	case t.targetTick == tick+1:
		q.nextTick.Add(t)
	default:
		q.active.Insert(t)
	}
}

// AdvanceCycle moves every task that became ready at tick/now into the
// active heap. The holding list is flushed unconditionally.
func (q *TaskQueue) AdvanceCycle(tick int64, now time.Time) {
	q.nextTick.Each(func(_ int, v interface{}) {
		q.active.Insert(v.(*Task))
	})
	q.nextTick.Clear()

	for {
		t, ok := q.pendingTime.TryPeek()
		if !ok || t.targetTime.After(now) {
			break
		}
		_, _ = q.pendingTime.ExtractMin()
		q.active.Insert(t)
	}

	for {
		t, ok := q.pendingTick.TryPeek()
		if !ok || t.targetTick > tick {
			break
		}
		_, _ = q.pendingTick.ExtractMin()
		q.active.Insert(t)
	}
}

// Dequeue removes the ready task with the lowest ordinal.
func (q *TaskQueue) Dequeue() (*Task, error) { return q.active.ExtractMin() }

// TryDequeue is Dequeue reporting emptiness as a boolean.
func (q *TaskQueue) TryDequeue() (*Task, bool) { return q.active.TryExtract() }

// Peek returns the next ready task without removing it.
func (q *TaskQueue) Peek() (*Task, error) { return q.active.PeekMin() }
