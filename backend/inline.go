// File: backend/inline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package backend

import "github.com/momentics/hioload-slice/api"

// Inline runs every item sequentially on the calling goroutine. It is the
// reference backend for determinism checks.
type Inline struct {
	base
}

var _ api.Backend = (*Inline)(nil)

// NewInline returns the sequential backend.
func NewInline(opts ...Option) *Inline {
	o := buildOptions(opts)
	in := &Inline{}
	in.init(string(KindInline), o.log)
	return in
}

// ExecuteBatch runs items 0..count-1 in order. Detached batches have already
// completed when the call returns; their faults are reported by Wait.
func (in *Inline) ExecuteBatch(count int, work api.WorkFunc, wait bool) error {
	return in.execute(count, work, wait, func(bt *batch) {
		for i := 0; i < count; i++ {
			bt.run(i)
		}
	})
}

// NumWorkers is always 1.
func (in *Inline) NumWorkers() int { return 1 }
