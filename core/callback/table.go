// File: core/callback/table.go
// Package callback resolves opaque handles back to call-scoped dispatch state.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Table is an arena of slots. Acquire stores a work function in a free slot
// and returns a Token made of the slot index and a generation counter; Release
// bumps the generation so stale tokens no longer resolve.

package callback

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-slice/api"
)

// Token is an opaque handle to a live table slot.
// The low 32 bits hold the slot index, the high 32 bits its generation.
type Token uint64

func makeToken(index, gen uint32) Token { return Token(uint64(gen)<<32 | uint64(index)) }

func (t Token) index() uint32 { return uint32(t) }
func (t Token) gen() uint32   { return uint32(t >> 32) }

// String renders the token for logs.
func (t Token) String() string {
	return fmt.Sprintf("handle(%d#%d)", t.index(), t.gen())
}

type slot struct {
	gen  uint32
	live bool
	work api.WorkFunc
}

// Table maps tokens to work functions. The zero value is ready to use.
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	live  int
}

// NewTable returns a table with room for hint concurrent handles before growing.
func NewTable(hint int) *Table {
	if hint < 0 {
		hint = 0
	}
	return &Table{slots: make([]slot, 0, hint)}
}

// Acquire stores work and returns its handle.
func (t *Table) Acquire(work api.WorkFunc) (Token, error) {
	if work == nil {
		return 0, api.NewError(api.ErrCodeInvalidCallbackShape, "callback: nil work function")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		// generation 0 is never handed out so the zero Token never resolves
		t.slots = append(t.slots, slot{gen: 1})
	}
	s := &t.slots[idx]
	s.live = true
	s.work = work
	t.live++
	return makeToken(idx, s.gen), nil
}

// Resolve returns the work function behind tok, or ErrInvalidHandle.
func (t *Table) Resolve(tok Token) (api.WorkFunc, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s := t.lookup(tok); s != nil {
		return s.work, nil
	}
	return nil, api.Errorf(api.ErrCodeInvalidHandle, "callback: %s does not resolve", tok)
}

// Release frees the slot behind tok. Releasing a stale token yields ErrInvalidHandle.
func (t *Table) Release(tok Token) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.lookup(tok)
	if s == nil {
		return api.Errorf(api.ErrCodeInvalidHandle, "callback: release of %s", tok)
	}
	s.live = false
	s.work = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	t.free = append(t.free, tok.index())
	t.live--
	return nil
}

// Len reports the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Cap reports the number of slots ever allocated.
func (t *Table) Cap() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

func (t *Table) lookup(tok Token) *slot {
	idx := tok.index()
	if int(idx) >= len(t.slots) {
		return nil
	}
	s := &t.slots[idx]
	if !s.live || s.gen != tok.gen() {
		return nil
	}
	return s
}
