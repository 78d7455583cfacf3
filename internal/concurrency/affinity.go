// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform CPU and NUMA affinity management. Platform files provide the
// platform* hooks; everything here is portable.

package concurrency

import (
	"runtime"
)

// PreferredCPUID returns the CPU a worker should be pinned to on numaNode.
// Workers are spread round-robin over the node's CPUs. Returns -1 when the
// node has no known CPUs, meaning "any CPU of the node".
func PreferredCPUID(numaNode, workerID int) int {
	if workerID < 0 {
		workerID = 0
	}
	cpus := platformNodeCPUs(numaNode)
	if len(cpus) == 0 {
		if numaNode < 0 {
			return workerID % NumCPUs()
		}
		return -1
	}
	return cpus[workerID%len(cpus)]
}

// PinCurrentThread locks the calling goroutine to its OS thread and restricts
// that thread to cpuID, or to every CPU of numaNode when cpuID < 0. On failure
// the goroutine is unlocked again.
func PinCurrentThread(numaNode, cpuID int) error {
	if cpuID >= maxCPUID {
		return ErrInvalidCPU
	}
	runtime.LockOSThread()
	if err := platformPinCurrentThread(numaNode, cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// UnpinCurrentThread removes CPU affinity constraints from current thread and
// releases the goroutine from its OS thread.
func UnpinCurrentThread() error {
	err := platformUnpinCurrentThread()
	runtime.UnlockOSThread()
	return err
}

// CurrentThreadID returns the OS thread ID of the caller, or -1 where the
// platform has none to report. Only stable while the goroutine is locked to
// its thread.
func CurrentThreadID() int {
	return platformThreadID()
}

// CurrentNUMANodeID returns the NUMA node of the current thread, or -1 if unknown.
func CurrentNUMANodeID() int {
	return platformCurrentNUMANodeID()
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}

// NUMANodes returns the number of NUMA nodes.
func NUMANodes() int {
	n := platformNUMANodes()
	if n < 1 {
		return 1
	}
	return n
}
