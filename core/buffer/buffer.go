// File: core/buffer/buffer.go
// Package buffer implements an explicitly managed, growable element buffer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer[T] owns one contiguous region of Cap() elements, of which the first
// Len() are logically valid. Large regions of pointer-free element types are
// mapped outside the Go heap (see region_unix.go); everything else lives on the
// heap. Growth doubles capacity from a base of 4 and bumps Version() so that
// holders of raw addresses can detect staleness.
//
// A Buffer is not safe for concurrent mutation. Disjoint sub-ranges obtained
// through SpanRange may be written concurrently while no Resize, EnsureCapacity
// or Release is in flight.

package buffer

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/momentics/hioload-slice/api"
)

const growthBase = 4

// Buffer is a growable, fixed-element-size region with explicit lifetime.
type Buffer[T any] struct {
	data     []T    // len(data) == capacity
	mapping  []byte // non-nil when data lives in an OS mapping
	length   int
	version  uint64
	released bool
}

// Allocate creates a buffer of length elements with capacity == length.
// With clear the whole region is zeroed; otherwise contents are unspecified.
func Allocate[T any](length int, clear bool) (*Buffer[T], error) {
	if length < 0 {
		return nil, invalidSize("length", length)
	}
	b := &Buffer[T]{}
	if err := b.realloc(length, false); err != nil {
		return nil, err
	}
	b.length = length
	if clear {
		b.zero(0, length)
	}
	liveBuffers.Add(1)
	return b, nil
}

// New is Allocate(length, true).
func New[T any](length int) (*Buffer[T], error) {
	return Allocate[T](length, true)
}

// FromSlice allocates a buffer holding a copy of src.
func FromSlice[T any](src []T) (*Buffer[T], error) {
	b, err := Allocate[T](len(src), false)
	if err != nil {
		return nil, err
	}
	copy(b.data, src)
	return b, nil
}

// Len returns the number of valid elements.
func (b *Buffer[T]) Len() int { return b.length }

// Cap returns the allocated capacity in elements.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// Version counts reallocations and the final release.
func (b *Buffer[T]) Version() uint64 { return b.version }

// Released reports whether Release has been called.
func (b *Buffer[T]) Released() bool { return b.released }

// Mapped reports whether the region lives in an OS mapping instead of the Go heap.
func (b *Buffer[T]) Mapped() bool { return b.mapping != nil }

// EnsureCapacity grows the region so that Cap() >= minCapacity. Capacity doubles
// from max(Cap(), 4) until it fits; contents up to Len() are preserved.
func (b *Buffer[T]) EnsureCapacity(minCapacity int) error {
	if b.released {
		return useAfterRelease("EnsureCapacity")
	}
	if minCapacity < 0 {
		return invalidSize("minCapacity", minCapacity)
	}
	if minCapacity <= len(b.data) {
		return nil
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = growthBase
	}
	for newCap < minCapacity {
		if newCap > math.MaxInt/2 {
			newCap = minCapacity
			break
		}
		newCap *= 2
	}
	return b.realloc(newCap, true)
}

// Resize sets Len() to newLength, growing capacity when needed. With clearNew
// the range [Len(), newLength) is zeroed when the buffer grows.
func (b *Buffer[T]) Resize(newLength int, clearNew bool) error {
	if b.released {
		return useAfterRelease("Resize")
	}
	if newLength < 0 {
		return invalidSize("newLength", newLength)
	}
	if newLength > len(b.data) {
		if err := b.EnsureCapacity(newLength); err != nil {
			return err
		}
	}
	if clearNew && newLength > b.length {
		b.zero(b.length, newLength)
	}
	b.length = newLength
	return nil
}

// Release frees the region. Subsequent calls are no-ops.
func (b *Buffer[T]) Release() {
	if b.released {
		return
	}
	b.released = true
	b.free()
	b.length = 0
	b.version++
	liveBuffers.Add(-1)
}

// Span returns the valid elements [0, Len()). The slice aliases the region and
// is invalidated by any reallocation or by Release.
func (b *Buffer[T]) Span() ([]T, error) {
	if b.released {
		return nil, useAfterRelease("Span")
	}
	return b.data[:b.length:b.length], nil
}

// SpanRange returns the valid elements [start, start+length).
func (b *Buffer[T]) SpanRange(start, length int) ([]T, error) {
	if b.released {
		return nil, useAfterRelease("SpanRange")
	}
	if start < 0 || length < 0 || start > b.length || length > b.length-start {
		return nil, api.Errorf(api.ErrCodeInvalidSize, "buffer: range [%d, %d+%d) outside length %d", start, start, length, b.length).
			WithContext("start", start).
			WithContext("length", length)
	}
	end := start + length
	return b.data[start:end:end], nil
}

// At returns element i.
func (b *Buffer[T]) At(i int) (T, error) {
	var zero T
	if b.released {
		return zero, useAfterRelease("At")
	}
	if i < 0 || i >= b.length {
		return zero, api.Errorf(api.ErrCodeInvalidSize, "buffer: index %d outside length %d", i, b.length)
	}
	return b.data[i], nil
}

// Set stores v at index i.
func (b *Buffer[T]) Set(i int, v T) error {
	if b.released {
		return useAfterRelease("Set")
	}
	if i < 0 || i >= b.length {
		return api.Errorf(api.ErrCodeInvalidSize, "buffer: index %d outside length %d", i, b.length)
	}
	b.data[i] = v
	return nil
}

// Append adds v after the last valid element, growing when full.
func (b *Buffer[T]) Append(v T) error {
	if err := b.Resize(b.length+1, false); err != nil {
		return err
	}
	b.data[b.length-1] = v
	return nil
}

// Ptr returns the base address of the region; nil iff Cap() == 0.
// The address is valid until the next reallocation (see Version) or Release.
func (b *Buffer[T]) Ptr() (unsafe.Pointer, error) {
	if b.released {
		return nil, useAfterRelease("Ptr")
	}
	if len(b.data) == 0 {
		return nil, nil
	}
	return unsafe.Pointer(unsafe.SliceData(b.data)), nil
}

func (b *Buffer[T]) String() string {
	if b.released {
		return "Buffer(released)"
	}
	var zero T
	var base uintptr
	if len(b.data) > 0 {
		base = uintptr(unsafe.Pointer(unsafe.SliceData(b.data)))
	}
	return fmt.Sprintf("Buffer(T=%T, Len=%d, Cap=%d, Ptr=0x%X, Ver=%d)", zero, b.length, len(b.data), base, b.version)
}

// realloc replaces the region with one of newCap elements, copying the valid
// prefix when preserve is set.
func (b *Buffer[T]) realloc(newCap int, preserve bool) error {
	var zero T
	elem := int(unsafe.Sizeof(zero))
	if elem > 0 && newCap > math.MaxInt/elem {
		return invalidSize("capacity", newCap)
	}
	data, mapping := allocRegion[T](newCap, elem)
	if preserve {
		copy(data, b.data[:b.length])
	}
	b.free()
	b.data = data
	b.mapping = mapping
	b.version++
	return nil
}

func (b *Buffer[T]) free() {
	if b.mapping != nil {
		unmapRegion(b.mapping)
		b.mapping = nil
	}
	b.data = nil
}

func (b *Buffer[T]) zero(from, to int) {
	clear(b.data[from:to])
}

func invalidSize(arg string, v int) error {
	return api.Errorf(api.ErrCodeInvalidSize, "buffer: negative or oversized %s %d", arg, v).
		WithContext(arg, v)
}

func useAfterRelease(op string) error {
	return api.Errorf(api.ErrCodeUseAfterRelease, "buffer: %s after release", op)
}
