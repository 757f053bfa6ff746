// File: adapters/executor_adapter.go
// Package adapters provides glue between core concurrency and api contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter implements the api.Executor interface on top of
// concurrency.ThreadPool for callers that do not need a result handle.

package adapters

import (
	"errors"

	"github.com/momentics/hioload-pool/api"
	"github.com/momentics/hioload-pool/core/concurrency"
)

// ExecutorAdapter wraps a concurrency.ThreadPool to satisfy the api.Executor contract.
type ExecutorAdapter struct {
	pool *concurrency.ThreadPool
}

// NewExecutorAdapter starts a pool with the given number of workers.
// workers <= 0 sizes the pool from the hardware concurrency hint.
func NewExecutorAdapter(workers int, opts ...concurrency.Option) (api.Executor, error) {
	cfg := concurrency.DefaultConfig()
	cfg.Workers = workers
	p, err := concurrency.NewThreadPool(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ExecutorAdapter{pool: p}, nil
}

// WrapPool adapts an existing pool.
func WrapPool(p *concurrency.ThreadPool) api.Executor {
	return &ExecutorAdapter{pool: p}
}

// Submit dispatches a task function to be executed asynchronously.
// Returns concurrency.ErrPoolClosed if the pool is shutting down.
func (ea *ExecutorAdapter) Submit(task func()) error {
	f := ea.pool.Execute(task)
	if _, done, err := f.TryGet(); done && errors.Is(err, concurrency.ErrPoolClosed) {
		return err
	}
	return nil
}

// NumWorkers returns the number of pool workers.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.pool.NumWorkers()
}

// Close shuts down the pool, waiting for running tasks.
func (ea *ExecutorAdapter) Close() {
	ea.pool.Close()
}
