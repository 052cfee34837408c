// Package thrower reports errors on a later turn so a failing callback
// cannot unwind the stack of the code that invoked it.
package thrower

import (
	"sync"
	"time"
)

// ID identifies a queued function.
type ID uint64

// Queue runs functions after a delay on their own goroutine.
type Queue struct {
	mu      sync.Mutex
	next    ID
	pending map[ID]*queued
}

type queued struct {
	timer *time.Timer
	// cancel runs when Dequeue stops the function before it ran.
	cancel func()
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: map[ID]*queued{}}
}

// Enqueue schedules fn to run once delay has elapsed. A zero delay runs fn
// as soon as the scheduler allows.
func (q *Queue) Enqueue(delay time.Duration, fn func()) ID {
	return q.enqueue(delay, fn, nil)
}

func (q *Queue) enqueue(delay time.Duration, fn, cancel func()) ID {
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	id := q.next
	q.pending[id] = &queued{
		cancel: cancel,
		timer: time.AfterFunc(delay, func() {
			q.mu.Lock()
			delete(q.pending, id)
			q.mu.Unlock()
			fn()
		}),
	}
	return id
}

// Dequeue cancels a queued function. It reports false when the function
// already ran or was never queued.
func (q *Queue) Dequeue(id ID) bool {
	q.mu.Lock()
	entry, ok := q.pending[id]
	if !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.pending, id)
	stopped := entry.timer.Stop()
	q.mu.Unlock()
	if stopped && entry.cancel != nil {
		entry.cancel()
	}
	return stopped
}

// Pending returns the number of functions still waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
