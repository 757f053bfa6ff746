// File: core/concurrency/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskCell is the uniform element type stored in the pool queue.

package concurrency

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// TaskCell owns a single zero-argument callable and runs it at most once.
//
// The zero value holds nothing and must not be invoked. A cell is consumed
// by Invoke, Discard or Take; Go has no move semantics, so Take stands in
// for moving the callable into a fresh cell.
type TaskCell struct {
	run     TaskFunc
	discard func(error)
}

// NewTaskCell wraps run.
func NewTaskCell(run TaskFunc) *TaskCell {
	return &TaskCell{run: run}
}

// NewTaskCellWithDiscard wraps run and a hook called if the cell is
// dropped without running.
func NewTaskCellWithDiscard(run TaskFunc, discard func(error)) *TaskCell {
	return &TaskCell{run: run, discard: discard}
}

// Valid reports whether the cell still holds a callable.
func (c *TaskCell) Valid() bool {
	return c != nil && c.run != nil
}

// Invoke runs the callable and empties the cell.
// Panics with ErrEmptyTaskCell if the cell is empty.
func (c *TaskCell) Invoke() {
	if !c.Valid() {
		panic(ErrEmptyTaskCell)
	}
	run := c.run
	c.run, c.discard = nil, nil
	run()
}

// Discard empties the cell without running it and reports reason to the
// discard hook, if any. No-op on an empty cell.
func (c *TaskCell) Discard(reason error) {
	if !c.Valid() {
		return
	}
	discard := c.discard
	c.run, c.discard = nil, nil
	if discard != nil {
		discard(reason)
	}
}

// Take moves the callable into a new cell, leaving c empty.
func (c *TaskCell) Take() *TaskCell {
	if c == nil {
		return &TaskCell{}
	}
	out := &TaskCell{run: c.run, discard: c.discard}
	c.run, c.discard = nil, nil
	return out
}
