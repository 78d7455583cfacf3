// File: core/buffer/region_other.go
//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

//
// Heap-only fallback: no OS mappings on this platform.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "errors"

var errMapUnsupported = errors.New("buffer: os mapping not supported")

func mapRegion(int) ([]byte, error) { return nil, errMapUnsupported }

func releaseRegion([]byte) error { return nil }
