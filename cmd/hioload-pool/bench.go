package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/momentics/hioload-pool/control"
	"github.com/momentics/hioload-pool/core/concurrency"
	"github.com/momentics/hioload-pool/internal/logging"
)

// benchResult summarises one bench run.
type benchResult struct {
	Tasks    int
	Workers  int
	Queue    concurrency.QueueKind
	Idle     concurrency.IdleStrategy
	Elapsed  time.Duration
	Failures int
	Metrics  map[string]any
}

// runBench submits tasks busy-loop tasks and waits on every future.
func runBench(cfg concurrency.Config, tasks, spin int, log logging.Logger) (*benchResult, error) {
	pool, err := concurrency.NewThreadPool(cfg, concurrency.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	start := time.Now()
	futures := make([]*concurrency.Future[int], tasks)
	for i := range futures {
		futures[i] = concurrency.SubmitValue(pool, func() int {
			acc := i
			for j := 0; j < spin; j++ {
				acc = acc*31 + j
			}
			return acc
		})
	}
	failures := 0
	for _, f := range futures {
		if _, err := f.Get(); err != nil {
			failures++
			log.Warn("task failed", "task", f.ID().String(), "error", err)
		}
	}
	elapsed := time.Since(start)

	metrics := control.NewMetricsRegistry()
	metrics.PublishStats("pool", pool)
	metrics.Set("bench.elapsed_ms", elapsed.Milliseconds())

	return &benchResult{
		Tasks:    tasks,
		Workers:  pool.NumWorkers(),
		Queue:    cfg.QueueKind,
		Idle:     cfg.IdleStrategy,
		Elapsed:  elapsed,
		Failures: failures,
		Metrics:  metrics.GetSnapshot(),
	}, nil
}

// Print writes a human readable report.
func (r *benchResult) Print(w io.Writer) {
	queue := r.Queue
	if queue == "" {
		queue = concurrency.QueueTwoLock
	}
	rate := 0.0
	if r.Elapsed > 0 {
		rate = float64(r.Tasks) / r.Elapsed.Seconds()
	}
	fmt.Fprintf(w, "tasks=%d workers=%d queue=%s idle=%s\n", r.Tasks, r.Workers, queue, r.Idle)
	fmt.Fprintf(w, "elapsed=%s throughput=%.0f tasks/s failures=%d\n", r.Elapsed, rate, r.Failures)

	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %v\n", k, r.Metrics[k])
	}
}
