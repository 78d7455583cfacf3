// File: internal/concurrency/threadpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed worker set fed by one bounded FIFO queue.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ThreadPool runs submitted tasks on a fixed number of workers. Submit blocks
// while the queue is full; TrySubmit does not. A panicking task is counted
// and does not stop its worker.
type ThreadPool struct {
	mu       sync.RWMutex
	tasks    chan TaskFunc
	closed   bool
	wg       sync.WaitGroup
	size     int
	numaNode int

	completed atomic.Int64
	panics    atomic.Int64
}

// NewThreadPool starts size workers (runtime.NumCPU() when size <= 0) sharing a
// queue of queueSize slots (size*4 when queueSize <= 0).
func NewThreadPool(size, queueSize, numaNode int) *ThreadPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = size * 4
	}
	tp := &ThreadPool{
		tasks:    make(chan TaskFunc, queueSize),
		size:     size,
		numaNode: numaNode,
	}
	tp.wg.Add(size)
	for i := 0; i < size; i++ {
		go tp.worker(i)
	}
	return tp
}

func (tp *ThreadPool) worker(id int) {
	defer tp.wg.Done()
	if tp.numaNode >= 0 {
		if err := PinCurrentThread(tp.numaNode, PreferredCPUID(tp.numaNode, id)); err == nil {
			defer UnpinCurrentThread()
		}
	}
	for task := range tp.tasks {
		tp.execute(task)
	}
}

func (tp *ThreadPool) execute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			tp.panics.Add(1)
		}
		tp.completed.Add(1)
	}()
	task()
}

// Submit queues f, blocking while the queue is full.
func (tp *ThreadPool) Submit(f func()) error {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	if tp.closed {
		return ErrPoolClosed
	}
	tp.tasks <- f
	return nil
}

// TrySubmit queues f if the queue has room. It reports false when the queue
// is full.
func (tp *ThreadPool) TrySubmit(f func()) (bool, error) {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	if tp.closed {
		return false, ErrPoolClosed
	}
	select {
	case tp.tasks <- f:
		return true, nil
	default:
		return false, nil
	}
}

// NumWorkers returns the fixed worker count.
func (tp *ThreadPool) NumWorkers() int {
	return tp.size
}

// Stats returns basic pool metrics.
func (tp *ThreadPool) Stats() map[string]int64 {
	return map[string]int64{
		"completed_tasks": tp.completed.Load(),
		"queued_tasks":    int64(len(tp.tasks)),
		"panics":          tp.panics.Load(),
		"num_workers":     int64(tp.size),
	}
}

// Close drains queued tasks and waits for the workers to exit. Idempotent.
func (tp *ThreadPool) Close() {
	tp.mu.Lock()
	if tp.closed {
		tp.mu.Unlock()
		return
	}
	tp.closed = true
	close(tp.tasks)
	tp.mu.Unlock()
	tp.wg.Wait()
}
