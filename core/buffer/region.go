// File: core/buffer/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backing-region selection: OS mapping for large pointer-free regions, Go heap
// otherwise. Pointer-carrying element types always stay on the heap so the
// garbage collector can see them.

package buffer

import (
	"reflect"
	"sync/atomic"
	"unsafe"
)

// MapThreshold is the region size in bytes from which an OS mapping is tried.
const MapThreshold = 64 << 10

var (
	liveBuffers atomic.Int64
	mappedBytes atomic.Int64
)

// Live returns the number of allocated, not yet released buffers.
func Live() int64 { return liveBuffers.Load() }

// MappedBytes returns the number of bytes currently held in OS mappings.
func MappedBytes() int64 { return mappedBytes.Load() }

func allocRegion[T any](n, elem int) ([]T, []byte) {
	if n == 0 {
		return nil, nil
	}
	size := n * elem
	if size >= MapThreshold && pointerFree(reflect.TypeFor[T]()) {
		if mem, err := mapRegion(size); err == nil {
			mappedBytes.Add(int64(cap(mem)))
			return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(mem))), n), mem
		}
	}
	return make([]T, n), nil
}

func unmapRegion(mem []byte) {
	mappedBytes.Add(-int64(cap(mem)))
	_ = releaseRegion(mem)
}

// pointerFree reports whether values of t contain no Go pointers.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}
