// File: internal/concurrency/affinity_windows.go
//go:build windows

//
// Package concurrency implements Windows-specific CPU affinity.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU pinning for the current OS thread via SetThreadAffinityMask.
// NUMA-awareness is not supported on Windows in this build.

package concurrency

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const maxCPUID = 64 // affinity mask width

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
)

func platformNodeCPUs(int) []int { return nil }

func platformCurrentNUMANodeID() int { return -1 }

func platformNUMANodes() int { return 1 }

func setThreadMask(mask uintptr) error {
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		return fmt.Errorf("SetThreadAffinityMask failed: %w", err)
	}
	return nil
}

// cpuID<0 means any CPU; the NUMA node is ignored.
func platformPinCurrentThread(_, cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	return setThreadMask(uintptr(1) << uint(cpuID))
}

func platformUnpinCurrentThread() error {
	total := NumCPUs()
	if total >= 64 {
		return setThreadMask(^uintptr(0))
	}
	return setThreadMask((uintptr(1) << uint(total)) - 1)
}

func platformThreadID() int { return int(windows.GetCurrentThreadId()) }
