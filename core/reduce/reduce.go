// File: core/reduce/reduce.go
// Package reduce dispatches per-slice operations through a backend and merges
// their partial sums into one total.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Slices handed to one reduction are disjoint, so work items never share
// elements; the only shared mutable value is the int64 accumulator, updated
// with atomic adds. Sums wrap on overflow, which keeps the total identical for
// every slicing and backend as long as the per-slice operation is an
// element-wise associative and commutative accumulation.

package reduce

import (
	"sync/atomic"

	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/core/buffer"
	"github.com/momentics/hioload-slice/core/callback"
	"github.com/momentics/hioload-slice/core/kernel"
	"github.com/momentics/hioload-slice/core/partition"
)

// SliceOp processes one slice and returns its partial sum.
type SliceOp func(s partition.Slice) (int64, error)

// ElementOp processes a contiguous run of elements and returns its partial sum.
type ElementOp func(data []int32) int64

// Reducer carries everything a reduction needs; there is no package state
// besides the default handle table.
type Reducer struct {
	// Backend executes the slices. Required.
	Backend api.Backend
	// Workers is the requested slice count. <= 0 asks the backend via
	// api.WorkerCounter, falling back to 1.
	Workers int
	// Lenient skips up-front slice validation; out-of-range slices are then
	// clamped or contribute zero instead of failing the call.
	Lenient bool
	// Handles is the table used for the dispatch handle; nil uses callback.Handles().
	Handles *callback.Table
}

// OverSlices runs op once per slice on b and returns the sum of the results.
func OverSlices(b api.Backend, slices []partition.Slice, op SliceOp) (int64, error) {
	return Reducer{Backend: b}.OverSlices(slices, nil, op)
}

// OverSlices runs op once per slice. When lengths is non-nil and the reducer
// is strict, every slice is validated against lengths before dispatch. The
// total is undefined (returned as 0) when any slice fails.
func (r Reducer) OverSlices(slices []partition.Slice, lengths []int, op SliceOp) (int64, error) {
	if r.Backend == nil {
		return 0, api.NewError(api.ErrCodeNotSupported, "reduce: no backend")
	}
	if op == nil {
		return 0, api.NewError(api.ErrCodeInvalidCallbackShape, "reduce: nil slice operation")
	}
	if lengths != nil && !r.Lenient {
		if err := partition.Validate(slices, lengths); err != nil {
			return 0, err
		}
	}
	if len(slices) == 0 {
		return 0, nil
	}

	var total atomic.Int64
	err := r.table().Dispatch(r.Backend, len(slices), func(i int) error {
		part, err := op(slices[i])
		if err != nil {
			return err
		}
		total.Add(part)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// Buffer partitions buf uniformly into at most Workers slices, applies op to
// each and returns the total. Mutations made by op are visible in buf.
func (r Reducer) Buffer(buf *buffer.Buffer[int32], op ElementOp) (int64, error) {
	if op == nil {
		return 0, api.NewError(api.ErrCodeInvalidCallbackShape, "reduce: nil element operation")
	}
	data, err := buf.Span()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	ranges, err := partition.Uniform(len(data), partition.ClampWorkers(r.workers(), len(data)))
	if err != nil {
		return 0, err
	}
	return r.OverSlices(partition.FromRanges(ranges), []int{len(data)}, func(s partition.Slice) (int64, error) {
		return op(data[s.Start:s.End()]), nil
	})
}

// AddOneAndSum increments every element of buf and returns the sum of the
// updated values.
func (r Reducer) AddOneAndSum(buf *buffer.Buffer[int32]) (int64, error) {
	return r.Buffer(buf, kernel.AddOneAndSum)
}

func (r Reducer) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	if wc, ok := r.Backend.(api.WorkerCounter); ok {
		return wc.NumWorkers()
	}
	return 1
}

func (r Reducer) table() *callback.Table {
	if r.Handles != nil {
		return r.Handles
	}
	return callback.Handles()
}
