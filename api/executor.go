// Package api
// Author: momentics <momentics@gmail.com>
//
// Executor contract for fire-and-forget task dispatch.

package api

// Executor abstracts parallel task execution.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns the number of worker routines.
	NumWorkers() int

	// Close stops the executor and waits for running tasks.
	Close()
}
