package sched

import (
	"errors"

	"ticksched/internal/pairing"
)

var (
	// ErrEmptyQueue is returned when dequeuing from an empty active queue.
	ErrEmptyQueue = pairing.ErrEmptyQueue

	// ErrInvalidState is returned on double-start or double-resume of a task,
	// or when scheduling a completed task.
	ErrInvalidState = errors.New("sched: invalid task state")
)
