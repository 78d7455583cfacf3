// File: backend/batch.go
// Package backend implements interchangeable api.Backend variants.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every variant shares the same batch bookkeeping: a WaitGroup per batch,
// recovered panics turned into *api.PanicError, per-item faults joined into
// one *api.BackendFault, and a tracker for detached (wait=false) batches.
//
// Each item carries a claim flag. Whoever claims an item runs it, so the
// goroutine waiting on a batch can run unclaimed items itself. A batch
// dispatched from inside a work item of the same backend therefore completes
// even when every worker is blocked waiting.

package backend

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/internal/logging"
)

// batch tracks the items of one ExecuteBatch call.
type batch struct {
	owner *base
	count int
	work  api.WorkFunc

	claimed []atomic.Bool
	tail    int // next item helpOne looks at, counting down; owner goroutine only

	wg     sync.WaitGroup
	mu     sync.Mutex
	faults []*api.ItemError
}

func (b *base) newBatch(count int, work api.WorkFunc) *batch {
	bt := &batch{owner: b, count: count, work: work, claimed: make([]atomic.Bool, count), tail: count}
	bt.wg.Add(count)
	return bt
}

func (bt *batch) claim(index int) bool { return bt.claimed[index].CompareAndSwap(false, true) }

// taken reports whether item index was already claimed.
func (bt *batch) taken(index int) bool { return bt.claimed[index].Load() }

// run executes item index unless someone else claimed it first.
func (bt *batch) run(index int) {
	if bt.claim(index) {
		bt.exec(index)
	}
}

func (bt *batch) exec(index int) {
	defer bt.wg.Done()
	if err := bt.invoke(index); err != nil {
		bt.record(index, err)
	}
}

// helpOne runs the highest-indexed unclaimed item on the calling goroutine.
// It returns false once every item has been claimed.
func (bt *batch) helpOne() bool {
	for bt.tail > 0 {
		bt.tail--
		if i := bt.tail; bt.claim(i) {
			bt.exec(i)
			return true
		}
	}
	return false
}

// help runs unclaimed items until none is left.
func (bt *batch) help() {
	for bt.helpOne() {
	}
}

func (bt *batch) invoke(index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.NewPanicError(r)
		}
	}()
	return bt.work(index)
}

// skip marks items [from, count) as failed with cause without running them.
func (bt *batch) skip(from int, cause error) {
	for i := from; i < bt.count; i++ {
		if bt.claim(i) {
			bt.record(i, cause)
			bt.wg.Done()
		}
	}
}

func (bt *batch) record(index int, err error) {
	bt.owner.faults.Add(1)
	bt.owner.log.Warn().Err(err).Int(logging.FieldIndex, index).Msg("work item failed")
	bt.mu.Lock()
	bt.faults = append(bt.faults, &api.ItemError{Index: index, Err: err})
	bt.mu.Unlock()
}

// wait blocks until every item finished and returns the aggregated fault.
func (bt *batch) wait() error {
	bt.wg.Wait()
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return api.NewBackendFault(bt.owner.name, bt.count, bt.faults)
}

// base carries what every backend variant shares.
type base struct {
	name string
	log  zerolog.Logger

	batches atomic.Int64
	items   atomic.Int64
	faults  atomic.Int64

	detachedMu  sync.Mutex
	detachedWG  sync.WaitGroup
	detachedErr []error
}

func (b *base) init(name string, log zerolog.Logger) {
	b.name = name
	b.log = logging.Component(log, "backend").With().Str(logging.FieldBackend, name).Logger()
}

// execute validates arguments, launches the batch via launch and either waits
// for it or hands it to the detached tracker. The waiting goroutine (the
// caller, or the tracker goroutine of a detached batch) helps run the batch.
func (b *base) execute(count int, work api.WorkFunc, wait bool, launch func(*batch)) error {
	if count < 0 {
		return api.Errorf(api.ErrCodeInvalidSize, "%s: negative item count %d", b.name, count)
	}
	if work == nil {
		return api.Errorf(api.ErrCodeInvalidCallbackShape, "%s: nil work function", b.name)
	}
	if count == 0 {
		return nil
	}
	b.batches.Add(1)
	b.items.Add(int64(count))

	bt := b.newBatch(count, work)
	launch(bt)
	if wait {
		bt.help()
		return bt.wait()
	}
	b.detachedWG.Add(1)
	go func() {
		defer b.detachedWG.Done()
		bt.help()
		if err := bt.wait(); err != nil {
			b.detachedMu.Lock()
			b.detachedErr = append(b.detachedErr, err)
			b.detachedMu.Unlock()
		}
	}()
	return nil
}

// Wait blocks until every detached batch completes and returns their joined
// faults. It must not run concurrently with a detaching ExecuteBatch.
func (b *base) Wait() error {
	b.detachedWG.Wait()
	b.detachedMu.Lock()
	defer b.detachedMu.Unlock()
	err := errors.Join(b.detachedErr...)
	b.detachedErr = nil
	return err
}

// Name returns the backend kind.
func (b *base) Name() string { return b.name }

// Stats returns dispatch counters.
func (b *base) Stats() map[string]int64 {
	return map[string]int64{
		"batches": b.batches.Load(),
		"items":   b.items.Load(),
		"faults":  b.faults.Load(),
	}
}

func mergeStats(dst, src map[string]int64, prefix string) map[string]int64 {
	for k, v := range src {
		dst[prefix+k] = v
	}
	return dst
}
