// Package api
// Author: momentics <momentics@gmail.com>
//
// Unbounded multi-producer/multi-consumer FIFO contract.

package api

import "context"

// Queue is an unbounded MPMC FIFO queue.
type Queue[T any] interface {
	// Push appends an item at the tail. Never blocks on consumers.
	Push(item T)
	// TryPop removes the oldest item, returns false if empty.
	TryPop() (T, bool)
	// WaitPop blocks until an item is available and removes it.
	WaitPop() T
	// WaitPopContext is WaitPop that gives up when ctx is done.
	WaitPopContext(ctx context.Context) (T, error)
	// Empty reports whether the queue holds no items.
	Empty() bool
	// Len returns the approximate number of queued items.
	Len() int
}
