// File: backend/spawn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Spawn runs every item on its own goroutine, optionally bounded by a
// semaphore. A goroutine whose item was already run by the waiting caller
// exits without taking a slot.

package backend

import (
	"runtime"

	"github.com/momentics/hioload-slice/api"
)

// Spawn is the one-goroutine-per-item backend.
type Spawn struct {
	base
	sem chan struct{}
}

var (
	_ api.Backend       = (*Spawn)(nil)
	_ api.WorkerCounter = (*Spawn)(nil)
	_ api.Waiter        = (*Spawn)(nil)
)

// NewSpawn returns a spawn backend. WithWorkers limits how many spawned
// goroutines run items at once; the goroutine waiting on the batch runs items
// too, on top of that limit. Without WithWorkers concurrency is unbounded.
func NewSpawn(opts ...Option) *Spawn {
	o := defaultOptions()
	o.workers = 0
	for _, opt := range opts {
		opt(&o)
	}
	s := &Spawn{}
	if o.workers > 0 {
		s.sem = make(chan struct{}, o.workers)
	}
	s.init(string(KindSpawn), o.log)
	return s
}

// ExecuteBatch starts count goroutines.
func (s *Spawn) ExecuteBatch(count int, work api.WorkFunc, wait bool) error {
	return s.execute(count, work, wait, func(bt *batch) {
		for i := 0; i < count; i++ {
			go func() {
				if bt.taken(i) {
					return
				}
				if s.sem != nil {
					s.sem <- struct{}{}
					defer func() { <-s.sem }()
				}
				bt.run(i)
			}()
		}
	})
}

// NumWorkers returns the concurrency limit, or runtime.NumCPU() when unbounded.
func (s *Spawn) NumWorkers() int {
	if s.sem != nil {
		return cap(s.sem)
	}
	return runtime.NumCPU()
}
