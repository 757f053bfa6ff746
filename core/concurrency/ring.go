// File: core/concurrency/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingQueue is an unbounded FIFO backed by a growable ring buffer and a
// single mutex. It serves as the baseline the two-lock queue is measured
// against and as an alternative pool queue.
// Implements api.Queue for cross-package consistency.

package concurrency

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-pool/api"
)

// Ensure compile-time interface compliance.
var _ api.Queue[any] = (*RingQueue[any])(nil)

// RingQueue is a mutex-guarded ring buffer queue.
type RingQueue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items *queue.Queue
}

// NewRingQueue allocates an empty ring queue.
func NewRingQueue[T any]() *RingQueue[T] {
	r := &RingQueue[T]{items: queue.New()}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push appends item.
func (r *RingQueue[T]) Push(item T) {
	r.mu.Lock()
	r.items.Add(item)
	r.mu.Unlock()
	r.cond.Signal()
}

// TryPop removes the oldest item; ok false if empty.
func (r *RingQueue[T]) TryPop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return r.remove(), true
}

// WaitPop blocks until an item is available.
func (r *RingQueue[T]) WaitPop() T {
	v, _ := r.WaitPopContext(context.Background())
	return v
}

// WaitPopContext blocks until an item is available or ctx is done.
func (r *RingQueue[T]) WaitPopContext(ctx context.Context) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	for r.items.Length() == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		r.cond.Wait()
	}
	return r.remove(), nil
}

// remove pops the front element. Caller holds mu and ensured Length > 0.
func (r *RingQueue[T]) remove() T {
	v, _ := r.items.Remove().(T)
	return v
}

// Empty reports whether no items are queued.
func (r *RingQueue[T]) Empty() bool {
	return r.Len() == 0
}

// Len returns current number of items.
func (r *RingQueue[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Length()
}
