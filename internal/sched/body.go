package sched

import (
	"fmt"
	"iter"
	"runtime/debug"
)

// Body is the resumable state machine behind a task. Each Step runs the task
// up to its next suspension point. Returning End (the zero Instruction)
// finishes the task without a result; returning an error fails it.
type Body interface {
	Step() (Instruction, error)
}

// Entry manufactures a fresh Body for a new task.
type Entry func(tc *Context) Body

// StepFunc adapts a plain function to Body. The function keeps its own
// position between calls, usually in variables captured by the Entry.
type StepFunc func() (Instruction, error)

func (f StepFunc) Step() (Instruction, error) { return f() }

// releaser is implemented by bodies that hold resources until they finish.
type releaser interface {
	Release()
}

// Coroutine lets a task body be written as straight-line code. Every call to
// yield parks the task with the given instruction; the body resumes right
// after it. fn must return once yield reports false.
func Coroutine(fn func(tc *Context, yield func(Instruction) bool) error) Entry {
	return func(tc *Context) Body {
		co := &coroutine{}
		co.next, co.stop = iter.Pull(func(yield func(Instruction) bool) {
			co.err = fn(tc, yield)
		})
		return co
	}
}

type coroutine struct {
	next func() (Instruction, bool)
	stop func()
	err  error
	done bool
}

func (c *coroutine) Step() (Instruction, error) {
	if c.done {
		return End(), nil
	}
	ins, ok := c.next()
	if !ok {
		c.done = true
		return End(), c.err
	}
	return ins, nil
}

func (c *coroutine) Release() {
	if c.done {
		return
	}
	c.done = true
	c.stop()
}

// PanicError is the failure recorded for a task whose body panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// step advances body once, converting a panic into a PanicError.
func step(body Body) (ins Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins = Instruction{}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return body.Step()
}
