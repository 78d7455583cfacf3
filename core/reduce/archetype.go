// File: core/reduce/archetype.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multi-array reduction over archetype position/velocity columns.

package reduce

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/core/buffer"
	"github.com/momentics/hioload-slice/core/kernel"
	"github.com/momentics/hioload-slice/core/partition"
)

// DefaultArchetypeLengths are the array sizes of the reference data set.
var DefaultArchetypeLengths = []int{120000, 35000, 9000, 2500}

// ArchetypeDescriptor is a bounds-checked view of one archetype's columns.
type ArchetypeDescriptor struct {
	Positions  []int32
	Velocities []int32
	Count      int
}

// ArchetypeSet owns one position and one velocity buffer per archetype plus
// the descriptor table consulted by index during a reduction.
type ArchetypeSet struct {
	positions   []*buffer.Buffer[int32]
	velocities  []*buffer.Buffer[int32]
	descriptors *buffer.Buffer[ArchetypeDescriptor]
}

// NewArchetypeSet allocates one archetype per entry of lengths and fills it
// with pos[i] = i, vel[i] = (i&1)+1. A nil lengths uses DefaultArchetypeLengths.
func NewArchetypeSet(lengths []int) (*ArchetypeSet, error) {
	if lengths == nil {
		lengths = DefaultArchetypeLengths
	}
	set := &ArchetypeSet{}
	for i, n := range lengths {
		pos, err := buffer.Allocate[int32](n, false)
		if err != nil {
			set.Release()
			return nil, fmt.Errorf("archetype %d: %w", i, err)
		}
		vel, err := buffer.Allocate[int32](n, false)
		if err != nil {
			pos.Release()
			set.Release()
			return nil, fmt.Errorf("archetype %d: %w", i, err)
		}
		set.positions = append(set.positions, pos)
		set.velocities = append(set.velocities, vel)
	}
	desc, err := buffer.Allocate[ArchetypeDescriptor](len(lengths), true)
	if err != nil {
		set.Release()
		return nil, err
	}
	set.descriptors = desc
	if err := set.Reset(); err != nil {
		set.Release()
		return nil, err
	}
	return set, nil
}

// Reset restores the initial contents and rebuilds the descriptor table.
func (s *ArchetypeSet) Reset() error {
	for i := range s.positions {
		pos, err := s.positions[i].Span()
		if err != nil {
			return err
		}
		vel, err := s.velocities[i].Span()
		if err != nil {
			return err
		}
		kernel.FillIndex(pos, 0)
		kernel.FillVelocity(vel, 0)
		if err := s.descriptors.Set(i, ArchetypeDescriptor{Positions: pos, Velocities: vel, Count: len(pos)}); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of archetypes.
func (s *ArchetypeSet) Len() int { return len(s.positions) }

// Lengths returns the element count of every archetype.
func (s *ArchetypeSet) Lengths() []int {
	out := make([]int, len(s.positions))
	for i, b := range s.positions {
		out[i] = b.Len()
	}
	return out
}

// Descriptor returns the table entry of archetype i.
func (s *ArchetypeSet) Descriptor(i int) (ArchetypeDescriptor, error) {
	if s.descriptors == nil {
		return ArchetypeDescriptor{}, api.NewError(api.ErrCodeUseAfterRelease, "reduce: archetype set released")
	}
	return s.descriptors.At(i)
}

// Positions returns the position column of archetype i.
func (s *ArchetypeSet) Positions(i int) ([]int32, error) {
	d, err := s.Descriptor(i)
	return d.Positions, err
}

// Release frees every buffer. Idempotent.
func (s *ArchetypeSet) Release() {
	for _, b := range s.positions {
		b.Release()
	}
	for _, b := range s.velocities {
		b.Release()
	}
	if s.descriptors != nil {
		s.descriptors.Release()
	}
}

// evalSlice applies UpdatePosVel to one slice. Slices naming an unknown
// archetype, or empty once clamped to the archetype length, contribute zero.
func (s *ArchetypeSet) evalSlice(sl partition.Slice, dt int32) int64 {
	d, err := s.descriptors.At(sl.Source)
	if err != nil || sl.Length <= 0 || sl.Start < 0 || sl.Start >= d.Count {
		return 0
	}
	end := min(sl.End(), d.Count)
	return kernel.UpdatePosVel(d.Positions[sl.Start:end], d.Velocities[sl.Start:end], dt)
}

// Archetypes partitions set with partition.Archetypes, stores the slice table
// in a Buffer for the duration of the call and applies pos += vel*dt to every
// slice. It returns the sum of all updated positions.
func (r Reducer) Archetypes(set *ArchetypeSet, minChunk int, dt int32) (int64, error) {
	if set == nil || set.descriptors == nil || set.descriptors.Released() {
		return 0, api.NewError(api.ErrCodeUseAfterRelease, "reduce: archetype set released")
	}
	lengths := set.Lengths()
	slices, err := partition.Archetypes(lengths, r.workers(), minChunk)
	if err != nil {
		return 0, err
	}
	table, err := buffer.FromSlice(slices)
	if err != nil {
		return 0, err
	}
	defer table.Release()
	view, err := table.Span()
	if err != nil {
		return 0, err
	}
	return r.ArchetypeSlices(set, view, dt)
}

// ArchetypeSlices reduces caller-provided slices over set. Strict reducers
// reject inconsistent slices with ErrInvalidSize; lenient ones clamp them.
func (r Reducer) ArchetypeSlices(set *ArchetypeSet, slices []partition.Slice, dt int32) (int64, error) {
	if set == nil || set.descriptors == nil || set.descriptors.Released() {
		return 0, api.NewError(api.ErrCodeUseAfterRelease, "reduce: archetype set released")
	}
	return r.OverSlices(slices, set.Lengths(), func(sl partition.Slice) (int64, error) {
		return set.evalSlice(sl, dt), nil
	})
}

// SumPositions returns the sum of every position, sequentially.
func (s *ArchetypeSet) SumPositions() (int64, error) {
	var sum int64
	var errs []error
	for i := range s.positions {
		pos, err := s.positions[i].Span()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sum += kernel.Sum(pos)
	}
	return sum, errors.Join(errs...)
}
