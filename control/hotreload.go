// control/hotreload.go
// Reload hook list shared by ConfigStore and the facade.

package control

import "sync"

// ReloadHooks is an ordered list of listeners.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func()
}

// NewReloadHooks returns an empty hook list.
func NewReloadHooks() *ReloadHooks {
	return &ReloadHooks{}
}

// Register adds a listener. nil is ignored.
func (h *ReloadHooks) Register(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}

// Len returns the number of registered listeners.
func (h *ReloadHooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// Trigger runs every listener on its own goroutine.
func (h *ReloadHooks) Trigger() {
	for _, fn := range h.snapshot() {
		go fn()
	}
}

// TriggerSync runs every listener in registration order on the caller.
func (h *ReloadHooks) TriggerSync() {
	for _, fn := range h.snapshot() {
		fn()
	}
}

func (h *ReloadHooks) snapshot() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]func(){}, h.hooks...)
}
