// File: api/backend.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatch backend contract: run N independent, index-addressed work items
// across a pool of workers, optionally waiting for completion.

package api

// WorkFunc processes the work item identified by index.
// A non-nil error (or a panic) marks the item as faulted.
type WorkFunc func(index int) error

// Backend is a pluggable executor for index-addressed batches.
//
// ExecuteBatch invokes work exactly once for every index in [0, count).
// Distinct indices may run concurrently and in any order; a single index
// runs to completion on one worker. With wait=true the call returns only
// after every invocation finished, and all writes made by work items are
// visible to the caller. Item faults are reported as a *BackendFault once
// every launched item has finished or failed.
//
// With wait=false the call returns as soon as the batch is queued; faults of
// detached batches are surfaced by Waiter.Wait when the backend supports it.
// A count of zero is a no-op; a negative count yields ErrInvalidSize.
type Backend interface {
	ExecuteBatch(count int, work WorkFunc, wait bool) error
}

// WorkerCounter is implemented by backends that own a fixed set of workers.
type WorkerCounter interface {
	// NumWorkers returns the current number of active workers.
	NumWorkers() int
}

// Waiter is implemented by backends that track detached (wait=false) batches.
type Waiter interface {
	// Wait blocks until every detached batch completes and returns their joined faults.
	Wait() error
}

// Closer is implemented by backends that own goroutines.
type Closer interface {
	// Close stops accepting batches and releases workers. Idempotent.
	Close() error
}
