// File: backend/queued.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Queued backends feed one closure per item to a long-lived worker set:
// "graph" uses the work-stealing NUMA executor, "pool" the bounded thread pool.

package backend

import (
	"errors"
	"sync/atomic"

	"github.com/momentics/hioload-slice/adapters"
	"github.com/momentics/hioload-slice/api"
)

// Submitter is the part of a worker set a queued backend needs.
type Submitter interface {
	Submit(task func()) error
	NumWorkers() int
}

// trySubmitter is implemented by worker sets with a bounded queue. TrySubmit
// reports false instead of blocking when the queue is full.
type trySubmitter interface {
	TrySubmit(task func()) (bool, error)
}

// Queued is an api.Backend over a Submitter.
type Queued struct {
	base
	exec   Submitter
	owned  bool
	closed atomic.Bool
}

var (
	_ api.Backend       = (*Queued)(nil)
	_ api.WorkerCounter = (*Queued)(nil)
	_ api.Waiter        = (*Queued)(nil)
	_ api.Closer        = (*Queued)(nil)
)

// NewGraph starts a work-stealing executor and returns a backend that owns it.
func NewGraph(opts ...Option) *Queued {
	o := buildOptions(opts)
	exec := adapters.NewExecutorAdapter(o.workers, o.numaNode, o.queueSize, o.cpuAffinity)
	return newQueued(string(KindGraph), exec, true, o)
}

// NewPool starts a bounded thread pool and returns a backend that owns it.
// While the pool queue is full the submitting goroutine runs items itself.
func NewPool(opts ...Option) *Queued {
	o := buildOptions(opts)
	exec := adapters.NewPoolAdapter(o.workers, o.queueSize, o.numaNode)
	return newQueued(string(KindPool), exec, true, o)
}

// NewOn wraps an existing worker set (for example an api.Executor). The
// backend does not close it.
func NewOn(name string, exec Submitter, opts ...Option) *Queued {
	return newQueued(name, exec, false, buildOptions(opts))
}

func newQueued(name string, exec Submitter, owned bool, o options) *Queued {
	q := &Queued{exec: exec, owned: owned}
	q.init(name, o.log)
	return q
}

// ExecuteBatch submits one task per index. If the worker set refuses a task,
// that item and every later one are recorded as faults; items already
// submitted are still awaited. A full queue is not a refusal: the submitter
// runs an item from the end of the batch and retries.
func (q *Queued) ExecuteBatch(count int, work api.WorkFunc, wait bool) error {
	if q.closed.Load() {
		return api.Errorf(api.ErrCodeClosed, "%s: backend closed", q.name)
	}
	submit := func(task func()) (bool, error) { return true, q.exec.Submit(task) }
	if ts, ok := q.exec.(trySubmitter); ok {
		submit = ts.TrySubmit
	}
	return q.execute(count, work, wait, func(bt *batch) {
		for i := 0; i < count; i++ {
			task := func() { bt.run(i) }
			for {
				accepted, err := submit(task)
				if err != nil {
					bt.skip(i, err)
					return
				}
				if accepted {
					break
				}
				if !bt.helpOne() || bt.taken(i) {
					return
				}
			}
		}
	})
}

// NumWorkers returns the size of the underlying worker set.
func (q *Queued) NumWorkers() int { return q.exec.NumWorkers() }

// Resize changes the worker count when the worker set supports it.
func (q *Queued) Resize(n int) bool {
	r, ok := q.exec.(interface{ Resize(int) })
	if ok {
		r.Resize(n)
	}
	return ok
}

// Stats merges dispatch counters with the worker set's own counters.
func (q *Queued) Stats() map[string]int64 {
	out := q.base.Stats()
	if s, ok := q.exec.(interface{ Stats() map[string]int64 }); ok {
		mergeStats(out, s.Stats(), "workers.")
	}
	return out
}

// Close waits for detached batches, then stops an owned worker set. Faults of
// detached batches not yet collected by Wait are returned. Idempotent.
func (q *Queued) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := q.Wait()
	if c, ok := q.exec.(api.Closer); ok && q.owned {
		err = errors.Join(err, c.Close())
	}
	return err
}
