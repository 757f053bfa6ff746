package concurrency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-pool/api"
	"github.com/momentics/hioload-pool/internal/logging"
)

func newTestPool(t *testing.T, cfg Config, opts ...Option) *ThreadPool {
	t.Helper()
	p, err := NewThreadPool(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestThreadPool_SubmitReturnsValue(t *testing.T) {
	for _, idle := range []IdleStrategy{IdleBlock, IdleYield} {
		t.Run(idle.String(), func(t *testing.T) {
			p := newTestPool(t, Config{Workers: 2, IdleStrategy: idle})

			f := SubmitValue(p, func() int { return 42 })
			v, err := f.Get()
			require.NoError(t, err)
			require.Equal(t, 42, v)

			// A second read observes the same single result.
			v, err = f.Get()
			require.NoError(t, err)
			require.Equal(t, 42, v)
		})
	}
}

func TestThreadPool_ErrorDoesNotStopPool(t *testing.T) {
	p := newTestPool(t, Config{Workers: 1})
	boom := errors.New("boom")

	bad := Submit(p, func() (int, error) { return 0, boom })
	_, err := bad.Get()
	require.ErrorIs(t, err, boom)

	good := SubmitValue(p, func() string { return "still running" })
	v, err := good.Get()
	require.NoError(t, err)
	require.Equal(t, "still running", v)

	stats := p.Stats()
	require.Equal(t, int64(1), stats["failed_tasks"])
	require.Equal(t, int64(1), stats["completed_tasks"])
}

func TestThreadPool_PanicIsCaptured(t *testing.T) {
	p := newTestPool(t, Config{Workers: 1})

	f := SubmitValue(p, func() int { panic("kaboom") })
	_, err := f.Get()

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "kaboom", pe.Value)
	require.NotEmpty(t, pe.Stack)

	v, err := SubmitValue(p, func() int { return 1 }).Get()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.Equal(t, int64(1), p.Stats()["panicked_tasks"])
}

func TestThreadPool_ZeroHintStillHasWorker(t *testing.T) {
	for _, hint := range []int{0, -1} {
		t.Run(fmt.Sprintf("hint=%d", hint), func(t *testing.T) {
			p := newTestPool(t, Config{}, WithConcurrencyHint(func() int { return hint }))
			require.Equal(t, 1, p.NumWorkers())

			v, err := SubmitValue(p, func() int { return 7 }).Get()
			require.NoError(t, err)
			require.Equal(t, 7, v)
		})
	}
}

func TestThreadPool_HintSizesPool(t *testing.T) {
	p := newTestPool(t, Config{}, WithConcurrencyHint(func() int { return 3 }))
	require.Equal(t, 3, p.NumWorkers())

	explicit := newTestPool(t, Config{Workers: 5}, WithConcurrencyHint(func() int { return 3 }))
	require.Equal(t, 5, explicit.NumWorkers())
}

func TestThreadPool_EveryTaskRunsOnce(t *testing.T) {
	for _, kind := range []QueueKind{QueueTwoLock, QueueRing} {
		t.Run(string(kind), func(t *testing.T) {
			p := newTestPool(t, Config{Workers: 4, QueueKind: kind})
			const producers, perProducer = 8, 500

			var runs [producers * perProducer]atomic.Int32
			futures := make(chan *Future[int], producers*perProducer)
			var wg sync.WaitGroup
			for pid := 0; pid < producers; pid++ {
				wg.Add(1)
				go func(pid int) {
					defer wg.Done()
					for i := 0; i < perProducer; i++ {
						id := pid*perProducer + i
						futures <- SubmitValue(p, func() int {
							runs[id].Add(1)
							return id
						})
					}
				}(pid)
			}
			wg.Wait()
			close(futures)

			seen := make(map[int]bool, producers*perProducer)
			for f := range futures {
				v, err := f.Get()
				require.NoError(t, err)
				require.False(t, seen[v])
				seen[v] = true
			}
			require.Len(t, seen, producers*perProducer)
			for i := range runs {
				require.Equal(t, int32(1), runs[i].Load())
			}
		})
	}
}

func TestThreadPool_SingleWorkerPreservesOrder(t *testing.T) {
	p := newTestPool(t, Config{Workers: 1})

	var mu sync.Mutex
	var order []int
	var last *Future[struct{}]
	for i := 0; i < 100; i++ {
		last = p.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	_, err := last.Get()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestThreadPool_CloseWaitsForRunningTask(t *testing.T) {
	p, err := NewThreadPool(Config{Workers: 1})
	require.NoError(t, err)

	started := make(chan struct{})
	var finished atomic.Bool
	f := p.Execute(func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	p.Close()
	require.True(t, finished.Load())
	require.Equal(t, StateStopped, p.State())

	_, err = f.Get()
	require.NoError(t, err)
}

func TestThreadPool_CloseAbandonsQueuedTasks(t *testing.T) {
	p, err := NewThreadPool(Config{Workers: 1})
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	running := p.Execute(func() {
		close(started)
		<-release
	})
	<-started

	queued := make([]*Future[int], 5)
	for i := range queued {
		queued[i] = SubmitValue(p, func() int { return 1 })
	}
	require.Equal(t, 5, p.Pending())
	require.Equal(t, int64(5), p.Stats()["pending_tasks"])

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool { return p.State() != StateRunning }, time.Second, time.Millisecond)
	close(release)
	<-closed

	_, err = running.Get()
	require.NoError(t, err)

	for _, f := range queued {
		_, err := f.Get()
		require.ErrorIs(t, err, ErrTaskAbandoned)

		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, api.ErrCodeAbandoned, apiErr.Code)
		require.Equal(t, f.ID().String(), apiErr.Context["task"])
	}
	require.Equal(t, int64(5), p.Stats()["abandoned_tasks"])
}

func TestThreadPool_DrainOnClose(t *testing.T) {
	p, err := NewThreadPool(Config{Workers: 1, DrainOnClose: true})
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	p.Execute(func() {
		close(started)
		<-release
	})
	<-started

	queued := make([]*Future[int], 5)
	for i := range queued {
		queued[i] = SubmitValue(p, func() int { return i * i })
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool { return p.State() != StateRunning }, time.Second, time.Millisecond)
	close(release)
	<-closed

	for i, f := range queued {
		v, err := f.Get()
		require.NoError(t, err)
		require.Equal(t, i*i, v)
	}
	require.Zero(t, p.Stats()["abandoned_tasks"])
}

func TestThreadPool_SubmitAfterClose(t *testing.T) {
	p, err := NewThreadPool(Config{Workers: 1})
	require.NoError(t, err)
	p.Close()
	p.Close()
	require.NoError(t, p.Shutdown())

	f := SubmitValue(p, func() int { return 1 })
	_, err = f.Get()
	require.ErrorIs(t, err, ErrPoolClosed)
	require.ErrorIs(t, err, api.ErrClosed)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.ErrCodeClosed, apiErr.Code)
	require.Equal(t, f.ID().String(), apiErr.Context["task"])
	require.Equal(t, int64(1), p.Stats()["rejected_tasks"])
}

func TestThreadPool_GoexitKeepsWorker(t *testing.T) {
	for _, idle := range []IdleStrategy{IdleBlock, IdleYield} {
		t.Run(idle.String(), func(t *testing.T) {
			p := newTestPool(t, Config{Workers: 1, IdleStrategy: idle})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			exited := Submit(p, func() (int, error) {
				runtime.Goexit()
				return 0, nil
			})
			_, err := exited.GetContext(ctx)
			require.ErrorIs(t, err, ErrTaskExited)

			v, err := SubmitValue(p, func() int { return 1 }).GetContext(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, v)

			stats := p.Stats()
			require.Equal(t, int64(1), stats["exited_tasks"])
			require.Equal(t, int64(1), stats["worker_restarts"])
			require.Equal(t, 1, p.NumWorkers())
		})
	}
}

func TestThreadPool_CloseFromTaskAsync(t *testing.T) {
	p, err := NewThreadPool(Config{Workers: 2})
	require.NoError(t, err)

	f := p.Execute(func() { go p.Close() })
	_, err = f.Get()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.State() == StateStopped }, 5*time.Second, time.Millisecond)
}

func TestThreadPool_WorkerStartFailure(t *testing.T) {
	initFail := errors.New("no thread")
	var logs syncBuffer

	p, err := NewThreadPool(Config{Workers: 4},
		WithWorkerInit(func(id int) error {
			if id == 2 {
				return initFail
			}
			return nil
		}),
		WithLogger(logging.New(&logs, slog.LevelDebug, "json")),
	)
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrWorkerStart)
	require.ErrorIs(t, err, initFail)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.ErrCodeStartup, apiErr.Code)
	require.Equal(t, 4, apiErr.Context["workers"])

	// Every started worker has left its loop before the constructor returned.
	out := logs.String()
	require.Equal(t, 3, strings.Count(out, `"msg":"worker started"`))
	require.Equal(t, 3, strings.Count(out, `"msg":"worker stopped"`))
	require.Contains(t, out, "thread pool failed to start")
}

func TestThreadPool_InvalidQueueKind(t *testing.T) {
	_, err := NewThreadPool(Config{Workers: 1, QueueKind: "stack"})
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestThreadPool_IdleWorkersSleep(t *testing.T) {
	q := &countingQueue{ConcurrentQueue: NewConcurrentQueue[*TaskCell]()}
	p := newTestPool(t, Config{Workers: 2}, WithQueue(q))

	time.Sleep(50 * time.Millisecond)
	// Blocking workers enter one wait each instead of spinning on TryPop.
	require.Zero(t, q.tryPops.Load())
	require.Equal(t, StateRunning, p.State())
}

func TestParseIdleStrategy(t *testing.T) {
	s, err := ParseIdleStrategy("yield")
	require.NoError(t, err)
	require.Equal(t, IdleYield, s)

	s, err = ParseIdleStrategy("")
	require.NoError(t, err)
	require.Equal(t, IdleBlock, s)

	_, err = ParseIdleStrategy("spin")
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

// countingQueue records worker-side queue calls.
type countingQueue struct {
	*ConcurrentQueue[*TaskCell]
	tryPops atomic.Int64
}

func (q *countingQueue) TryPop() (*TaskCell, bool) {
	q.tryPops.Add(1)
	return q.ConcurrentQueue.TryPop()
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
