// Package api
// Author: momentics@gmail.com
//
// CPU/NUMA affinity of the calling OS thread.

package api

// AffinityScope says what a binding applies to.
type AffinityScope int

const (
	// ScopeThread binds the current OS thread (the goroutine is locked to it).
	ScopeThread AffinityScope = iota
	// ScopeWorker binds the worker threads of a backend.
	ScopeWorker
)

func (s AffinityScope) String() string {
	switch s {
	case ScopeThread:
		return "thread"
	case ScopeWorker:
		return "worker"
	}
	return "unknown"
}

// AffinityDescriptor is a snapshot of a binding.
type AffinityDescriptor struct {
	CPUID  int
	NUMAID int
	Scope  AffinityScope
	Pinned bool
}

// Affinity controls execution on particular CPUs/NUMA nodes.
type Affinity interface {
	// Pin locks the current goroutine to a CPU and NUMA node; -1 picks one.
	Pin(cpuID int, numaID int) error
	// Unpin removes affinity.
	Unpin() error
	// Get returns current CPU and NUMA node, -1 when unbound.
	Get() (cpuID int, numaID int, err error)
}
