// File: core/buffer/region_unix.go
//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

//
// Anonymous private mappings via mmap(2). Sizes are rounded up to whole pages;
// the returned slice keeps the rounded capacity so munmap sees the full mapping.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"golang.org/x/sys/unix"
)

func mapRegion(size int) ([]byte, error) {
	page := unix.Getpagesize()
	length := ((size + page - 1) / page) * page
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return mem[:size], nil
}

func releaseRegion(mem []byte) error {
	return unix.Munmap(mem[:cap(mem)])
}
