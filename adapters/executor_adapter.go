// File: adapters/executor_adapter.go
// Package adapters provides glue between internal concurrency and the api contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter exposes the internal work-stealing Executor as api.Executor;
// PoolAdapter does the same for the bounded ThreadPool. Backends in package
// backend build on these.

package adapters

import (
	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/internal/concurrency"
)

// ExecutorAdapter wraps an internal concurrency.Executor to satisfy the api.Executor contract.
type ExecutorAdapter struct {
	exec *concurrency.Executor
}

var _ api.Executor = (*ExecutorAdapter)(nil)

// NewExecutorAdapter constructs an executor with the given number of worker
// goroutines. numaNode >= 0 pins workers to that node; pinCPUs pins each
// worker to one CPU even without a node.
func NewExecutorAdapter(workers, numaNode, queueSize int, pinCPUs bool) *ExecutorAdapter {
	e := concurrency.NewExecutor(workers, numaNode,
		concurrency.WithLocalQueueSize(queueSize),
		concurrency.WithCPUAffinity(pinCPUs))
	return &ExecutorAdapter{exec: e}
}

// Submit dispatches a task function to be executed asynchronously.
// Returns an error if the executor has been closed.
func (ea *ExecutorAdapter) Submit(task func()) error {
	if err := ea.exec.Submit(task); err != nil {
		return api.NewError(api.ErrCodeClosed, "executor closed").WithCause(err)
	}
	return nil
}

// NumWorkers returns the current number of active worker goroutines.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.exec.NumWorkers()
}

// Resize dynamically adjusts the size of the worker pool.
func (ea *ExecutorAdapter) Resize(newCount int) {
	ea.exec.Resize(newCount)
}

// Stats returns executor counters.
func (ea *ExecutorAdapter) Stats() map[string]int64 {
	return ea.exec.Stats()
}

// Close drains queued tasks and waits for the workers to exit.
func (ea *ExecutorAdapter) Close() error {
	ea.exec.Close()
	return nil
}

// PoolAdapter wraps a bounded concurrency.ThreadPool.
type PoolAdapter struct {
	pool *concurrency.ThreadPool
}

// NewPoolAdapter starts workers sharing a queue of queueSize slots.
func NewPoolAdapter(workers, queueSize, numaNode int) *PoolAdapter {
	return &PoolAdapter{pool: concurrency.NewThreadPool(workers, queueSize, numaNode)}
}

// Submit queues task, blocking while the queue is full.
func (pa *PoolAdapter) Submit(task func()) error {
	if err := pa.pool.Submit(task); err != nil {
		return api.NewError(api.ErrCodeClosed, "thread pool closed").WithCause(err)
	}
	return nil
}

// TrySubmit queues task unless the pool queue is full.
func (pa *PoolAdapter) TrySubmit(task func()) (bool, error) {
	ok, err := pa.pool.TrySubmit(task)
	if err != nil {
		return false, api.NewError(api.ErrCodeClosed, "thread pool closed").WithCause(err)
	}
	return ok, nil
}

// NumWorkers returns the fixed worker count.
func (pa *PoolAdapter) NumWorkers() int { return pa.pool.NumWorkers() }

// Stats returns pool counters.
func (pa *PoolAdapter) Stats() map[string]int64 { return pa.pool.Stats() }

// Close drains the queue and stops the workers.
func (pa *PoolAdapter) Close() error {
	pa.pool.Close()
	return nil
}
