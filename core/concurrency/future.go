// File: core/concurrency/future.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One-shot promise/future pair conveying a single result or error from a
// worker back to the submitter.

package concurrency

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Future is the read side of a one-shot result channel.
type Future[T any] struct {
	id    uuid.UUID
	done  chan struct{}
	value T
	err   error
}

// Promise is the write side paired with a Future.
type Promise[T any] struct {
	once   sync.Once
	future *Future[T]
}

// NewPromise creates a linked promise/future pair.
func NewPromise[T any]() (*Promise[T], *Future[T]) {
	f := &Future[T]{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
	return &Promise[T]{future: f}, f
}

// Resolve fulfils the future with v. Returns false if already completed.
func (p *Promise[T]) Resolve(v T) bool {
	return p.complete(v, nil)
}

// Reject fails the future with err. Returns false if already completed.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.complete(zero, err)
}

func (p *Promise[T]) complete(v T, err error) bool {
	ok := false
	p.once.Do(func() {
		p.future.value = v
		p.future.err = err
		close(p.future.done)
		ok = true
	})
	return ok
}

// ID identifies the task behind this future.
func (f *Future[T]) ID() uuid.UUID {
	return f.id
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the result is available.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetContext blocks until the result is available or ctx is done.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking; ok is false while pending.
func (f *Future[T]) TryGet() (value T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return value, false, nil
	}
}
