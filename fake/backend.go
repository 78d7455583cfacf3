// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"slices"
	"sync"

	"github.com/momentics/hioload-slice/api"
)

// Backend runs every item inline and records what it was asked to do.
// Detached batches run inline as well.
type Backend struct {
	mu      sync.Mutex
	indices []int
	batches int
	// FailAt makes the item with this index fail with Err when Err is set.
	FailAt int
	Err    error
}

var _ api.Backend = (*Backend)(nil)

// NewBackend returns an empty recording backend.
func NewBackend() *Backend { return &Backend{FailAt: -1} }

// ExecuteBatch records and runs indices 0..count-1 in order.
func (b *Backend) ExecuteBatch(count int, work api.WorkFunc, wait bool) error {
	if count < 0 {
		return api.Errorf(api.ErrCodeInvalidSize, "fake: negative count %d", count)
	}
	b.mu.Lock()
	b.batches++
	b.mu.Unlock()

	var items []*api.ItemError
	for i := 0; i < count; i++ {
		b.mu.Lock()
		b.indices = append(b.indices, i)
		b.mu.Unlock()

		err := invoke(work, i)
		if b.Err != nil && i == b.FailAt {
			err = b.Err
		}
		if err != nil {
			items = append(items, &api.ItemError{Index: i, Err: err})
		}
	}
	return api.NewBackendFault("fake", count, items)
}

func invoke(work api.WorkFunc, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.NewPanicError(r)
		}
	}()
	return work(i)
}

// Indices returns every index run so far, sorted.
func (b *Backend) Indices() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Clone(b.indices)
	slices.Sort(out)
	return out
}

// Batches returns the number of ExecuteBatch calls.
func (b *Backend) Batches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batches
}

