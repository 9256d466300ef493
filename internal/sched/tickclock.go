// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock paces a Host. Every tick carries the time it fired at. A tick that
// finds the buffer full is dropped and counted, the way a host skips slices it
// cannot serve.
type TickClock struct {
	C <-chan time.Time

	ch      chan time.Time
	fired   atomic.Int64
	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
}

// NewTickClock creates a stopped clock with room for buffer undelivered ticks.
func NewTickClock(buffer int) *TickClock {
	ch := make(chan time.Time, buffer)
	return &TickClock{
		C:    ch,
		ch:   ch,
		done: make(chan struct{}),
	}
}

// Start fires a tick every interval until Stop. C is closed once the clock
// goroutine exits.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer close(c.ch)
		defer ticker.Stop()
		for {
			select {
			case at := <-ticker.C:
				c.fired.Add(1)
				select {
				case c.ch <- at:
				default:
					c.dropped.Add(1)
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Stop halts the clock. It is safe to call more than once.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.done) })
}

// Fired returns how many ticks the clock produced, delivered or not.
func (c *TickClock) Fired() int64 { return c.fired.Load() }

// Dropped returns how many ticks were skipped because the consumer was busy.
func (c *TickClock) Dropped() int64 { return c.dropped.Load() }
