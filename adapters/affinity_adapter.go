// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface, delegating to
//   internal concurrency primitives for CPU and NUMA pinning.

package adapters

import (
	"sync"

	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/internal/concurrency"
)

// AffinityAdapter implements api.Affinity for the calling thread and
// remembers the last binding it made, including the OS thread it was made on.
// Only that thread can undo the binding.
type AffinityAdapter struct {
	mu          sync.Mutex
	currentCPU  int
	currentNUMA int
	thread      int
	pinned      bool
	scope       api.AffinityScope
}

var _ api.Affinity = (*AffinityAdapter)(nil)

// NewAffinityAdapter creates an unbound adapter with thread scope.
func NewAffinityAdapter() *AffinityAdapter {
	return &AffinityAdapter{
		currentCPU:  -1,
		currentNUMA: -1,
		scope:       api.ScopeThread,
	}
}

// Pin binds the calling thread. cpuID -1 picks the first CPU of numaID (or of
// the allowed set when numaID is -1 too).
func (a *AffinityAdapter) Pin(cpuID int, numaID int) error {
	if cpuID == -1 {
		cpuID = concurrency.PreferredCPUID(numaID, 0)
	}
	if err := concurrency.PinCurrentThread(numaID, cpuID); err != nil {
		return api.NewError(api.ErrCodeNotSupported, "affinity: pin failed").
			WithCause(err).
			WithContext("cpu", cpuID).
			WithContext("numa", numaID)
	}
	if numaID == -1 {
		numaID = concurrency.CurrentNUMANodeID()
	}

	a.mu.Lock()
	a.currentCPU, a.currentNUMA, a.pinned = cpuID, numaID, true
	a.thread = concurrency.CurrentThreadID()
	a.mu.Unlock()
	return nil
}

// Unpin restores the thread's original CPU set and releases the OS thread
// lock. Called from any thread other than the pinned one it fails with
// ErrNotSupported and leaves the binding alone.
func (a *AffinityAdapter) Unpin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pinned && !a.onPinnedThread() {
		return api.NewError(api.ErrCodeNotSupported, "affinity: unpin from a thread that is not pinned").
			WithContext("pinned_thread", a.thread).
			WithContext("thread", concurrency.CurrentThreadID())
	}
	if err := concurrency.UnpinCurrentThread(); err != nil {
		return err
	}
	a.currentCPU, a.currentNUMA, a.pinned = -1, -1, false
	return nil
}

// OnPinnedThread reports whether the caller runs on the thread Pin bound.
func (a *AffinityAdapter) OnPinnedThread() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pinned && a.onPinnedThread()
}

func (a *AffinityAdapter) onPinnedThread() bool {
	return a.thread == concurrency.CurrentThreadID()
}

// Get returns the CPU and NUMA IDs of the last successful Pin.
func (a *AffinityAdapter) Get() (cpuID int, numaID int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentCPU, a.currentNUMA, nil
}

// Scope returns the binding scope.
func (a *AffinityAdapter) Scope() api.AffinityScope {
	return a.scope
}

// Descriptor returns a snapshot of the current binding state.
func (a *AffinityAdapter) Descriptor() api.AffinityDescriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return api.AffinityDescriptor{
		CPUID:  a.currentCPU,
		NUMAID: a.currentNUMA,
		Scope:  a.scope,
		Pinned: a.pinned,
	}
}
