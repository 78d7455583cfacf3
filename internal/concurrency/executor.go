// File: internal/concurrency/executor.go
// Package concurrency implements a NUMA-aware task executor with work-stealing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines. Each worker owns a
// bounded lock-free queue; idle workers steal from their neighbours, and
// tasks that do not fit any local queue spill into an unbounded overflow
// queue, so Submit never drops work while the executor is open.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// TaskFunc is a unit of work to execute.
type TaskFunc = func()

const defaultLocalQueueSize = 1024

// ExecutorOption customises NewExecutor.
type ExecutorOption func(*Executor)

// WithLocalQueueSize sets the per-worker queue capacity (rounded up to a power of two).
func WithLocalQueueSize(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithCPUAffinity pins every worker to a dedicated CPU even without a NUMA node.
func WithCPUAffinity(enabled bool) ExecutorOption {
	return func(e *Executor) { e.pin = enabled || e.numaNode >= 0 }
}

// Executor manages a pool of worker goroutines.
type Executor struct {
	mu          sync.RWMutex // guards localQueues and workers
	resizeMu    sync.Mutex   // serialises Resize and Close
	localQueues []*LockFreeQueue[TaskFunc]
	workers     []*worker

	overflowMu sync.Mutex
	overflow   *queue.Queue

	wake    chan struct{}
	closeCh chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
	rr      atomic.Uint64

	numaNode  int
	pin       bool
	queueSize int

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	overflowTasks  atomic.Int64
	panics         atomic.Int64
	pinFailures    atomic.Int64
}

// NewExecutor creates a new Executor with the given number of workers and optional NUMA node.
// If numWorkers <= 0, defaults to runtime.NumCPU(). numaNode < 0 disables NUMA binding.
func NewExecutor(numWorkers, numaNode int, opts ...ExecutorOption) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		overflow:  queue.New(),
		wake:      make(chan struct{}, defaultLocalQueueSize),
		closeCh:   make(chan struct{}),
		numaNode:  numaNode,
		pin:       numaNode >= 0,
		queueSize: defaultLocalQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mu.Lock()
	for i := 0; i < numWorkers; i++ {
		e.spawnLocked(i)
	}
	e.mu.Unlock()
	return e
}

func (e *Executor) spawnLocked(id int) {
	w := &worker{
		id:        id,
		executor:  e,
		local:     NewLockFreeQueue[TaskFunc](e.queueSize),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	e.localQueues = append(e.localQueues, w.local)
	e.workers = append(e.workers, w)
	e.wg.Add(1)
	go w.run()
}

// Submit enqueues a task for execution, returning ErrExecutorClosed if executor is closed.
func (e *Executor) Submit(task func()) error {
	e.mu.RLock()
	if e.closed.Load() {
		e.mu.RUnlock()
		return ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	qs := e.localQueues
	idx := int(e.rr.Add(1) % uint64(len(qs)))
	if !qs[idx].Enqueue(task) {
		e.pushOverflow(task)
	}
	e.mu.RUnlock()
	e.signal()
	return nil
}

func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) pushOverflow(task TaskFunc) {
	e.overflowMu.Lock()
	e.overflow.Add(task)
	e.overflowMu.Unlock()
	e.overflowTasks.Add(1)
}

func (e *Executor) popOverflow() (TaskFunc, bool) {
	e.overflowMu.Lock()
	defer e.overflowMu.Unlock()
	if e.overflow.Length() == 0 {
		return nil, false
	}
	return e.overflow.Remove().(TaskFunc), true
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.workers)
}

// Resize dynamically scales the worker pool. Tasks queued on removed workers
// are moved to the overflow queue before they are dropped from rotation.
func (e *Executor) Resize(newCount int) {
	if newCount <= 0 {
		newCount = 1
	}
	e.resizeMu.Lock()
	defer e.resizeMu.Unlock()
	if e.closed.Load() {
		return
	}

	e.mu.Lock()
	current := len(e.workers)
	if newCount >= current {
		for i := current; i < newCount; i++ {
			e.spawnLocked(i)
		}
		e.mu.Unlock()
		return
	}
	removed := append([]*worker(nil), e.workers[newCount:]...)
	e.mu.Unlock()

	for _, w := range removed {
		close(w.stopCh)
	}
	for _, w := range removed {
		<-w.stoppedCh
	}

	e.mu.Lock()
	for _, w := range removed {
		for {
			task, ok := w.local.Dequeue()
			if !ok {
				break
			}
			e.pushOverflow(task)
		}
	}
	e.workers = e.workers[:newCount]
	e.localQueues = e.localQueues[:newCount]
	e.mu.Unlock()
	e.signal()
}

// Close stops accepting tasks, lets workers drain every queue, and waits for them to exit.
func (e *Executor) Close() {
	e.resizeMu.Lock()
	defer e.resizeMu.Unlock()
	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		return
	}
	e.closed.Store(true)
	close(e.closeCh)
	e.mu.Unlock()
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	done := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"overflow_tasks":  e.overflowTasks.Load(),
		"panics":          e.panics.Load(),
		"pin_failures":    e.pinFailures.Load(),
		"num_workers":     int64(e.NumWorkers()),
	}
}

// worker represents a single executor goroutine.
type worker struct {
	id        int
	executor  *Executor
	local     *LockFreeQueue[TaskFunc]
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// run is the main loop for a worker, optionally pinned to a CPU of the executor's NUMA node.
func (w *worker) run() {
	e := w.executor
	defer func() {
		close(w.stoppedCh)
		e.wg.Done()
	}()
	if e.pin {
		if err := PinCurrentThread(e.numaNode, PreferredCPUID(e.numaNode, w.id)); err != nil {
			e.pinFailures.Add(1)
		} else {
			defer UnpinCurrentThread()
		}
	}
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if task, ok := w.next(); ok {
			w.executeTask(task)
			continue
		}
		select {
		case <-w.stopCh:
			return
		case <-e.closeCh:
			return
		case <-e.wake:
		}
	}
}

// next takes from the local queue, then steals from neighbours, then the overflow queue.
func (w *worker) next() (TaskFunc, bool) {
	if task, ok := w.local.Dequeue(); ok {
		return task, true
	}
	e := w.executor
	e.mu.RLock()
	qs := e.localQueues
	e.mu.RUnlock()
	for i := 1; i < len(qs); i++ {
		if task, ok := qs[(w.id+i)%len(qs)].Dequeue(); ok {
			return task, true
		}
	}
	return e.popOverflow()
}

// executeTask runs the task and updates statistics, recovering from panics.
func (w *worker) executeTask(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			w.executor.panics.Add(1)
		}
		w.executor.completedTasks.Add(1)
	}()
	task()
}
