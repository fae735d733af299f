// Package dispatch marshals work onto the single UI goroutine.
//
// Goroutines other than the UI one (asset loads, HTTP handlers, config
// watchers) never touch manager state directly. They Post a function, or
// Invoke one and wait, and the UI goroutine runs queued functions in FIFO
// order each time it calls Drain.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("dispatch queue closed")

// Queue is a FIFO of functions drained by one goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	notify  chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post queues fn for the next Drain. It is safe from any goroutine.
func (q *Queue) Post(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Invoke queues fn and blocks until the draining goroutine has run it.
// It must not be called from the draining goroutine.
func (q *Queue) Invoke(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var panicked any
	err := q.Post(func() {
		defer close(done)
		defer func() { panicked = recover() }()
		fn()
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		if panicked != nil {
			return fmt.Errorf("dispatched call panicked: %v", panicked)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs everything queued before the call and returns how many
// functions ran. Functions queued while draining run on the next Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of queued functions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ready is signalled when work is posted. It lets an idle host loop wake up
// early instead of waiting for its next tick.
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}

// Close rejects further work. Already queued functions still run on Drain.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
