// File: core/partition/partition.go
// Package partition computes contiguous index ranges for parallel dispatch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pure functions only: no allocation beyond the returned slices, no shared state.

package partition

import (
	"github.com/momentics/hioload-slice/api"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns End-Start.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range covers no element.
func (r Range) Empty() bool { return r.End <= r.Start }

// Slice describes [Start, Start+Length) of the array identified by Source.
// Source is 0 for single-array dispatch.
type Slice struct {
	Source int
	Start  int
	Length int
}

// End returns Start+Length.
func (s Slice) End() int { return s.Start + s.Length }

// Uniform splits [0, total) into exactly workers ranges of ceil(total/workers)
// elements each, in worker order. Trailing ranges may be empty.
func Uniform(total, workers int) ([]Range, error) {
	if total < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidSize, "partition: negative total %d", total)
	}
	if workers < 1 {
		return nil, api.Errorf(api.ErrCodeInvalidSize, "partition: worker count %d < 1", workers)
	}
	chunk := ceilDiv(total, workers)
	out := make([]Range, workers)
	for i := range out {
		start := min(i*chunk, total)
		out[i] = Range{Start: start, End: min(start+chunk, total)}
	}
	return out, nil
}

// Archetypes partitions several independently sized arrays. An array shorter
// than minChunk yields one whole-array slice; a longer one is cut into
// min(workers, ceil(L/minChunk)) sections of ceil(L/sections) elements, the
// last one truncated. Empty arrays are skipped. Output is ordered by array
// index, then by start offset.
func Archetypes(lengths []int, workers, minChunk int) ([]Slice, error) {
	if workers < 1 {
		return nil, api.Errorf(api.ErrCodeInvalidSize, "partition: worker count %d < 1", workers)
	}
	if minChunk < 1 {
		return nil, api.Errorf(api.ErrCodeInvalidSize, "partition: min chunk size %d < 1", minChunk)
	}
	var out []Slice
	for src, l := range lengths {
		if l <= 0 {
			continue
		}
		if l < minChunk {
			out = append(out, Slice{Source: src, Start: 0, Length: l})
			continue
		}
		sections := min(workers, ceilDiv(l, minChunk))
		size := ceilDiv(l, sections)
		for s := 0; s < sections; s++ {
			start := s * size
			if start >= l {
				continue
			}
			out = append(out, Slice{Source: src, Start: start, Length: min(size, l-start)})
		}
	}
	return out, nil
}

// FromRanges converts the non-empty ranges to Source-0 slices.
func FromRanges(ranges []Range) []Slice {
	out := make([]Slice, 0, len(ranges))
	for _, r := range ranges {
		if r.Empty() {
			continue
		}
		out = append(out, Slice{Start: r.Start, Length: r.Len()})
	}
	return out
}

// ClampWorkers bounds a requested worker count to [1, length].
func ClampWorkers(workers, length int) int {
	if workers > length {
		workers = length
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Validate checks that every slice is non-empty and lies within lengths[Source].
func Validate(slices []Slice, lengths []int) error {
	for i, s := range slices {
		if s.Source < 0 || s.Source >= len(lengths) {
			return api.Errorf(api.ErrCodeInvalidSize, "partition: slice %d references source %d of %d", i, s.Source, len(lengths)).
				WithContext("slice", i)
		}
		if s.Start < 0 || s.Length <= 0 || s.Length > lengths[s.Source]-s.Start {
			return api.Errorf(api.ErrCodeInvalidSize, "partition: slice %d [%d,+%d) outside source %d of length %d",
				i, s.Start, s.Length, s.Source, lengths[s.Source]).
				WithContext("slice", i)
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
