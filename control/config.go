// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with merge updates and reload propagation.

package control

import (
	"maps"
	"reflect"
	"sync"
)

// ConfigStore is a dynamic key/value map with snapshot reads and reload hooks.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
	hooks  *ReloadHooks
}

// NewConfigStore initializes a store holding a copy of initial.
func NewConfigStore(initial map[string]any) *ConfigStore {
	cs := &ConfigStore{
		config: make(map[string]any, len(initial)),
		hooks:  NewReloadHooks(),
	}
	maps.Copy(cs.config, initial)
	return cs
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// Get returns one value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges newCfg and returns the keys whose value changed. Reload
// hooks run synchronously, after the lock is released, only when something
// changed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) []string {
	cs.mu.Lock()
	var changed []string
	for k, v := range newCfg {
		if old, ok := cs.config[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		cs.config[k] = v
		changed = append(changed, k)
	}
	cs.mu.Unlock()

	if len(changed) > 0 {
		cs.hooks.TriggerSync()
	}
	return changed
}

// OnReload registers a listener called after every effective change.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.hooks.Register(fn)
}
