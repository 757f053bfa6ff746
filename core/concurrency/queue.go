// File: core/concurrency/queue.go
// Package concurrency provides the task queue and worker pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConcurrentQueue is an unbounded MPMC FIFO built as a singly linked chain
// with a data-less sentinel at the tail. Head and tail are guarded by two
// independent mutexes so producers and consumers do not serialize on a
// single lock.

package concurrency

import (
	"context"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-pool/api"
)

// Ensure compile-time interface compliance.
var _ api.Queue[any] = (*ConcurrentQueue[any])(nil)

// node is a chain element. data is nil only on the current tail (sentinel).
type node[T any] struct {
	data *T
	next *node[T]
}

// ConcurrentQueue is a two-lock linked FIFO.
//
// Lock order is head then tail, never reversed. Push takes only the tail
// lock. The condition variable is bound to the tail lock so that a blocked
// consumer never holds the head lock while it sleeps.
type ConcurrentQueue[T any] struct {
	headMu sync.Mutex
	head   *node[T]
	popped uint64 // guarded by headMu

	_ cpu.CacheLinePad

	tailMu sync.Mutex
	tail   *node[T]
	pushed uint64 // push epoch, guarded by tailMu
	cond   *sync.Cond
}

// NewConcurrentQueue returns an empty queue holding a single sentinel.
func NewConcurrentQueue[T any]() *ConcurrentQueue[T] {
	sentinel := &node[T]{}
	q := &ConcurrentQueue[T]{head: sentinel, tail: sentinel}
	q.cond = sync.NewCond(&q.tailMu)
	return q
}

// Push appends v. It never touches the head lock.
func (q *ConcurrentQueue[T]) Push(v T) {
	data := &v
	sentinel := &node[T]{}

	q.tailMu.Lock()
	q.tail.data = data
	q.tail.next = sentinel
	q.tail = sentinel
	q.pushed++
	q.tailMu.Unlock()

	q.cond.Signal()
}

// getTail reads the tail pointer under the tail lock.
func (q *ConcurrentQueue[T]) getTail() *node[T] {
	q.tailMu.Lock()
	defer q.tailMu.Unlock()
	return q.tail
}

// snapshot returns the tail pointer and push epoch as one consistent read.
func (q *ConcurrentQueue[T]) snapshot() (*node[T], uint64) {
	q.tailMu.Lock()
	defer q.tailMu.Unlock()
	return q.tail, q.pushed
}

// popHead detaches the head data and advances head. Caller holds headMu
// and has established head != tail.
func (q *ConcurrentQueue[T]) popHead() T {
	old := q.head
	v := *old.data
	q.head = old.next
	old.data = nil
	old.next = nil
	q.popped++
	return v
}

// TryPop removes the oldest item without blocking.
func (q *ConcurrentQueue[T]) TryPop() (T, bool) {
	q.headMu.Lock()
	defer q.headMu.Unlock()
	if q.head == q.getTail() {
		var zero T
		return zero, false
	}
	return q.popHead(), true
}

// TryPopInto stores the oldest item into dst. dst is untouched when the
// queue is empty.
func (q *ConcurrentQueue[T]) TryPopInto(dst *T) bool {
	v, ok := q.TryPop()
	if ok {
		*dst = v
	}
	return ok
}

// WaitPop blocks until an item is available and removes it.
func (q *ConcurrentQueue[T]) WaitPop() T {
	v, _ := q.WaitPopContext(context.Background())
	return v
}

// WaitPopInto blocks until an item is available and stores it into dst.
func (q *ConcurrentQueue[T]) WaitPopInto(dst *T) {
	*dst = q.WaitPop()
}

// WaitPopContext blocks until an item is available or ctx is done.
// Returns ctx.Err() in the latter case.
func (q *ConcurrentQueue[T]) WaitPopContext(ctx context.Context) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		q.tailMu.Lock()
		q.cond.Broadcast()
		q.tailMu.Unlock()
	})
	defer stop()

	for {
		q.headMu.Lock()
		tail, epoch := q.snapshot()
		if q.head != tail {
			v := q.popHead()
			q.headMu.Unlock()
			return v, nil
		}
		q.headMu.Unlock()

		q.tailMu.Lock()
		for q.pushed == epoch && ctx.Err() == nil {
			q.cond.Wait()
		}
		q.tailMu.Unlock()

		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Empty reports whether head and tail refer to the same node.
func (q *ConcurrentQueue[T]) Empty() bool {
	q.headMu.Lock()
	defer q.headMu.Unlock()
	return q.head == q.getTail()
}

// Len returns pushed minus popped. Exact when quiescent.
func (q *ConcurrentQueue[T]) Len() int {
	q.headMu.Lock()
	defer q.headMu.Unlock()
	q.tailMu.Lock()
	defer q.tailMu.Unlock()
	return int(q.pushed - q.popped)
}
