// File: internal/concurrency/affinity_linux.go
//go:build linux

//
// Linux affinity via sched_setaffinity(2); NUMA topology from sysfs.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	sysNodeRoot = "/sys/devices/system/node"
	maxCPUID    = 1024 // unix.CPUSet width
)

var (
	topoOnce    sync.Once
	nodeCPUs    map[int][]int
	nodeCount   int
	allowedCPUs []int
)

func loadTopology() {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		for c := 0; c < maxCPUID; c++ {
			if set.IsSet(c) {
				allowedCPUs = append(allowedCPUs, c)
			}
		}
	}
	nodeCPUs = make(map[int][]int)
	dirs, _ := filepath.Glob(filepath.Join(sysNodeRoot, "node[0-9]*"))
	for _, dir := range dirs {
		id, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(dir), "node"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "cpulist"))
		if err != nil {
			continue
		}
		nodeCPUs[id] = parseCPUList(strings.TrimSpace(string(raw)))
	}
	nodeCount = len(nodeCPUs)
	if nodeCount == 0 {
		nodeCount = 1
	}
}

// parseCPUList decodes the kernel list format, e.g. "0-3,8,10-11".
func parseCPUList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			continue
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(hi); err != nil {
				continue
			}
		}
		for c := a; c <= b; c++ {
			out = append(out, c)
		}
	}
	return out
}

// platformNodeCPUs returns the CPUs of numaNode, or the CPUs the process may
// run on when numaNode < 0.
func platformNodeCPUs(numaNode int) []int {
	topoOnce.Do(loadTopology)
	if numaNode < 0 {
		return allowedCPUs
	}
	return nodeCPUs[numaNode]
}

func platformNUMANodes() int {
	topoOnce.Do(loadTopology)
	return nodeCount
}

func platformCurrentNUMANodeID() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return -1
	}
	topoOnce.Do(loadTopology)
	for node, cpus := range nodeCPUs {
		for _, c := range cpus {
			if set.IsSet(c) {
				return node
			}
		}
	}
	return -1
}

func platformPinCurrentThread(numaNode, cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	if cpuID >= 0 {
		set.Set(cpuID)
	} else {
		for _, c := range platformNodeCPUs(numaNode) {
			set.Set(c)
		}
	}
	if set.Count() == 0 {
		return ErrInvalidCPU
	}
	return unix.SchedSetaffinity(0, &set)
}

func platformUnpinCurrentThread() error {
	var set unix.CPUSet
	set.Zero()
	cpus := platformNodeCPUs(-1)
	if len(cpus) == 0 {
		return nil
	}
	for _, c := range cpus {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}

func platformThreadID() int { return unix.Gettid() }
