// File: core/concurrency/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool runs submitted tasks on a fixed set of worker goroutines fed
// from a single shared FIFO. Each submission returns a Future. Shutdown
// sets an atomic flag, wakes idle workers and joins them; tasks still
// queued at that point are either failed or drained depending on config.

package concurrency

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-pool/api"
	"github.com/momentics/hioload-pool/internal/logging"
)

// IdleStrategy selects what a worker does when the queue is empty.
type IdleStrategy int

const (
	// IdleBlock parks the worker on the queue until a push or shutdown.
	IdleBlock IdleStrategy = iota
	// IdleYield polls with TryPop and yields the processor between attempts.
	IdleYield
)

func (s IdleStrategy) String() string {
	switch s {
	case IdleBlock:
		return "block"
	case IdleYield:
		return "yield"
	default:
		return "unknown"
	}
}

// ParseIdleStrategy maps "block" / "yield" to an IdleStrategy.
func ParseIdleStrategy(s string) (IdleStrategy, error) {
	switch s {
	case "", "block":
		return IdleBlock, nil
	case "yield":
		return IdleYield, nil
	}
	return IdleBlock, fmt.Errorf("%w: idle strategy %q", api.ErrInvalidArgument, s)
}

// QueueKind selects the queue implementation behind the pool.
type QueueKind string

const (
	QueueTwoLock QueueKind = "twolock"
	QueueRing    QueueKind = "ring"
)

// State is the pool lifecycle stage.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds parameters immutable per pool.
type Config struct {
	Workers      int          // <= 0 means use the hardware concurrency hint
	IdleStrategy IdleStrategy // what idle workers do
	DrainOnClose bool         // run queued tasks on Close instead of failing them
	PinWorkers   bool         // pin each worker to a CPU
	QueueKind    QueueKind    // "twolock" (default) or "ring"
}

// DefaultConfig returns defaults: hardware-sized, blocking idle workers.
func DefaultConfig() Config {
	return Config{
		Workers:      0,
		IdleStrategy: IdleBlock,
		QueueKind:    QueueTwoLock,
	}
}

// Option customises pool construction.
type Option func(*ThreadPool)

// WithLogger sets the pool logger.
func WithLogger(l logging.Logger) Option {
	return func(p *ThreadPool) { p.log = l }
}

// WithConcurrencyHint replaces the hardware concurrency query.
func WithConcurrencyHint(hint func() int) Option {
	return func(p *ThreadPool) { p.hint = hint }
}

// WithWorkerInit registers a hook run on each worker before it takes tasks.
// A non-nil error aborts pool construction.
func WithWorkerInit(fn func(id int) error) Option {
	return func(p *ThreadPool) { p.inits = append(p.inits, fn) }
}

// WithQueue supplies the queue. Overrides Config.QueueKind.
func WithQueue(q api.Queue[*TaskCell]) Option {
	return func(p *ThreadPool) { p.queue = q }
}

// Ensure compile-time interface compliance.
var _ api.GracefulShutdown = (*ThreadPool)(nil)

// ThreadPool is a fixed-size worker pool.
type ThreadPool struct {
	cfg     Config
	queue   api.Queue[*TaskCell]
	workers []*worker
	wg      sync.WaitGroup
	done    atomic.Bool // shutdown flag read by workers between iterations
	state   atomic.Int32
	ctx     context.Context
	cancel  context.CancelFunc
	gate    sync.RWMutex // orders submissions against the shutdown flag flip
	closeMu sync.Mutex
	log     logging.Logger
	hint    func() int
	inits   []func(id int) error

	// statistics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	abandoned atomic.Int64
	rejected  atomic.Int64
	exited    atomic.Int64
	restarted atomic.Int64
}

// NewThreadPool starts cfg.Workers workers. If any worker fails to start,
// the workers already running are stopped and joined and an *api.Error with
// code ErrCodeStartup wrapping ErrWorkerStart is returned.
func NewThreadPool(cfg Config, opts ...Option) (*ThreadPool, error) {
	p := &ThreadPool{
		cfg:  cfg,
		log:  logging.Nop(),
		hint: HardwareConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue == nil {
		q, err := newQueue(cfg.QueueKind)
		if err != nil {
			return nil, err
		}
		p.queue = q
	}
	if cfg.PinWorkers {
		p.inits = append(p.inits, pinWorker)
	}

	n := cfg.Workers
	if n <= 0 {
		n = p.hint()
	}
	if n <= 0 {
		n = 1
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	ready := make(chan error, n)
	p.workers = make([]*worker, 0, n)
	for i := 0; i < n; i++ {
		w := &worker{id: i, pool: p}
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go w.run(ready)
	}

	var startErr error
	for i := 0; i < n; i++ {
		if err := <-ready; err != nil && startErr == nil {
			startErr = err
			p.done.Store(true)
			p.cancel()
		}
	}
	if startErr != nil {
		p.wg.Wait()
		p.state.Store(int32(StateStopped))
		p.log.Error("thread pool failed to start", "workers", n, "error", startErr)
		return nil, api.NewError(api.ErrCodeStartup, startErr.Error()).
			WithContext("workers", n).
			WithCause(startErr)
	}

	p.log.Debug("thread pool started",
		"workers", n,
		"idle", cfg.IdleStrategy.String(),
		"queue", fmt.Sprintf("%T", p.queue),
	)
	return p, nil
}

func newQueue(kind QueueKind) (api.Queue[*TaskCell], error) {
	switch kind {
	case "", QueueTwoLock:
		return NewConcurrentQueue[*TaskCell](), nil
	case QueueRing:
		return NewRingQueue[*TaskCell](), nil
	}
	return nil, fmt.Errorf("%w: queue kind %q", api.ErrInvalidArgument, kind)
}

// Submit schedules fn on p and returns its future. Errors returned by fn
// and panics raised by it are delivered through the future; a task that
// calls runtime.Goexit fails with ErrTaskExited. If p is closing, the
// future is rejected with an *api.Error (ErrCodeClosed) wrapping ErrPoolClosed.
func Submit[T any](p *ThreadPool, fn func() (T, error)) *Future[T] {
	promise, future := NewPromise[T]()

	run := func() {
		normalReturn := false
		defer func() {
			if r := recover(); r != nil {
				p.panicked.Add(1)
				p.log.Warn("task panicked", "task", future.ID().String(), "panic", r)
				promise.Reject(&PanicError{Value: r, Stack: debug.Stack()})
				return
			}
			if !normalReturn {
				p.exited.Add(1)
				p.log.Warn("task exited its goroutine", "task", future.ID().String())
				promise.Reject(taskError(future.ID().String(), ErrTaskExited))
			}
		}()
		v, err := fn()
		normalReturn = true
		if err != nil {
			p.failed.Add(1)
			promise.Reject(err)
			return
		}
		p.completed.Add(1)
		promise.Resolve(v)
	}
	discard := func(reason error) {
		promise.Reject(taskError(future.ID().String(), reason))
	}

	p.gate.RLock()
	defer p.gate.RUnlock()
	if p.done.Load() {
		p.rejected.Add(1)
		promise.Reject(taskError(future.ID().String(), ErrPoolClosed))
		return future
	}
	p.submitted.Add(1)
	p.queue.Push(NewTaskCellWithDiscard(run, discard))
	return future
}

// SubmitValue schedules a callable that cannot fail.
func SubmitValue[T any](p *ThreadPool, fn func() T) *Future[T] {
	return Submit(p, func() (T, error) { return fn(), nil })
}

// Execute schedules a plain task.
func (p *ThreadPool) Execute(task TaskFunc) *Future[struct{}] {
	return Submit(p, func() (struct{}, error) {
		task()
		return struct{}{}, nil
	})
}

// NumWorkers returns the fixed worker count.
func (p *ThreadPool) NumWorkers() int {
	return len(p.workers)
}

// State returns the current lifecycle stage.
func (p *ThreadPool) State() State {
	return State(p.state.Load())
}

// Pending returns the approximate number of queued tasks.
func (p *ThreadPool) Pending() int {
	return p.queue.Len()
}

// Close stops the pool. It sets the shutdown flag, wakes idle workers and
// waits for every worker to finish its current task and exit. Tasks still
// queued afterwards are failed with ErrTaskAbandoned, or run on the
// calling goroutine when DrainOnClose is set. Safe to call repeatedly.
//
// Close joins the workers, so a task must not call it synchronously: the
// calling worker would wait on itself. From inside a task use go p.Close().
func (p *ThreadPool) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.State() != StateRunning {
		return
	}
	p.gate.Lock()
	p.done.Store(true)
	p.gate.Unlock()
	p.state.Store(int32(StateShuttingDown))
	p.cancel()
	p.wg.Wait()

	drained, dropped := 0, 0
	for {
		cell, ok := p.queue.TryPop()
		if !ok {
			break
		}
		if p.cfg.DrainOnClose {
			cell.Invoke()
			drained++
			continue
		}
		cell.Discard(ErrTaskAbandoned)
		p.abandoned.Add(1)
		dropped++
	}
	p.state.Store(int32(StateStopped))
	p.log.Info("thread pool stopped", "drained", drained, "abandoned", dropped)
}

// Shutdown implements api.GracefulShutdown.
func (p *ThreadPool) Shutdown() error {
	p.Close()
	return nil
}

// taskError wraps reason with the task ID.
func taskError(taskID string, reason error) error {
	code := api.ErrCodeInternal
	switch {
	case errors.Is(reason, ErrTaskAbandoned):
		code = api.ErrCodeAbandoned
	case errors.Is(reason, ErrPoolClosed):
		code = api.ErrCodeClosed
	}
	return api.NewError(code, reason.Error()).
		WithContext("task", taskID).
		WithCause(reason)
}

// Stats returns basic pool metrics.
func (p *ThreadPool) Stats() map[string]int64 {
	return map[string]int64{
		"submitted_tasks": p.submitted.Load(),
		"completed_tasks": p.completed.Load(),
		"failed_tasks":    p.failed.Load(),
		"panicked_tasks":  p.panicked.Load(),
		"abandoned_tasks": p.abandoned.Load(),
		"rejected_tasks":  p.rejected.Load(),
		"exited_tasks":    p.exited.Load(),
		"worker_restarts": p.restarted.Load(),
		"pending_tasks":   int64(p.Pending()),
		"num_workers":     int64(p.NumWorkers()),
	}
}
