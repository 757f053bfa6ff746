// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-pool/api"
)

var (
	// ErrPoolClosed indicates the pool has begun shutting down.
	ErrPoolClosed = fmt.Errorf("thread pool: %w", api.ErrClosed)

	// ErrTaskAbandoned indicates a queued task was dropped at shutdown without running.
	ErrTaskAbandoned = errors.New("task abandoned at shutdown")

	// ErrWorkerStart indicates a worker failed to start during construction.
	ErrWorkerStart = errors.New("worker failed to start")

	// ErrTaskExited indicates a task called runtime.Goexit instead of returning.
	ErrTaskExited = errors.New("task exited without returning")

	// ErrEmptyTaskCell indicates an empty or already consumed TaskCell was invoked.
	ErrEmptyTaskCell = errors.New("task cell holds no callable")

	// ErrInvalidWorkerCount indicates invalid worker count configuration
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// PanicError carries a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
