// File: core/concurrency/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-worker loop: pop a task, run it, repeat until the pool shutdown flag
// is observed between iterations.

package concurrency

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-pool/affinity"
	"github.com/momentics/hioload-pool/internal/logging"
)

// worker represents a single pool goroutine.
type worker struct {
	id   int
	pool *ThreadPool
}

// pinWorker is the init hook installed when Config.PinWorkers is set.
func pinWorker(id int) error {
	return affinity.PinWorker(id)
}

// run executes init hooks, reports readiness and then consumes tasks.
func (w *worker) run(ready chan<- error) {
	defer w.pool.wg.Done()

	if err := w.init(); err != nil {
		ready <- err
		return
	}
	ready <- nil
	w.serve()
}

// init runs the registered hooks on the current goroutine.
func (w *worker) init() error {
	for _, hook := range w.pool.inits {
		if err := hook(w.id); err != nil {
			return fmt.Errorf("%w: worker %d: %w", ErrWorkerStart, w.id, err)
		}
	}
	return nil
}

// serve runs the idle loop until shutdown. If a task unwinds the goroutine
// with runtime.Goexit, a replacement takes over the worker slot.
func (w *worker) serve() {
	p := w.pool
	log := p.log.With("worker", w.id)
	log.Debug("worker started")
	defer log.Debug("worker stopped")

	normalReturn := false
	defer func() {
		if !normalReturn {
			w.restart(log)
		}
	}()

	switch p.cfg.IdleStrategy {
	case IdleYield:
		w.pollLoop()
	default:
		w.blockLoop()
	}
	normalReturn = true
}

// restart starts a new goroutine for w. Called from the deferred path of
// an exiting goroutine, which still holds its WaitGroup slot.
func (w *worker) restart(log logging.Logger) {
	p := w.pool
	if p.done.Load() {
		return
	}
	p.restarted.Add(1)
	log.Warn("worker goroutine exited, restarting")
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := w.init(); err != nil {
			log.Error("worker restart failed", "error", err)
			return
		}
		w.serve()
	}()
}

// blockLoop parks on the queue while idle; shutdown cancels the wait.
func (w *worker) blockLoop() {
	p := w.pool
	for !p.done.Load() {
		cell, err := p.queue.WaitPopContext(p.ctx)
		if err != nil {
			return
		}
		w.executeTask(cell)
	}
}

// pollLoop tries a non-blocking pop and yields the processor when empty.
func (w *worker) pollLoop() {
	p := w.pool
	for !p.done.Load() {
		if cell, ok := p.queue.TryPop(); ok {
			w.executeTask(cell)
			continue
		}
		runtime.Gosched()
	}
}

// executeTask runs the task, recovering from panics to keep the worker alive.
func (w *worker) executeTask(cell *TaskCell) {
	defer func() {
		if r := recover(); r != nil {
			w.pool.log.Warn("worker recovered from task panic", "worker", w.id, "panic", r)
		}
	}()
	if cell.Valid() {
		cell.Invoke()
	}
}
