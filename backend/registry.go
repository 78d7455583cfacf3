// File: backend/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package backend

import (
	"strings"

	"github.com/momentics/hioload-slice/api"
)

// Kind names a backend variant.
type Kind string

const (
	KindGraph  Kind = "graph"  // work-stealing executor, NUMA aware
	KindPool   Kind = "pool"   // bounded FIFO thread pool
	KindSpawn  Kind = "spawn"  // goroutine per item
	KindInline Kind = "inline" // sequential on the caller
)

// Kinds lists every variant in a stable order.
func Kinds() []Kind {
	return []Kind{KindGraph, KindPool, KindSpawn, KindInline}
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", api.Errorf(api.ErrCodeNotSupported, "backend: unknown kind %q", s).
		WithContext("known", Kinds())
}

// New constructs a backend of the given kind.
func New(kind Kind, opts ...Option) (api.Backend, error) {
	switch kind {
	case KindGraph:
		return NewGraph(opts...), nil
	case KindPool:
		return NewPool(opts...), nil
	case KindSpawn:
		return NewSpawn(opts...), nil
	case KindInline:
		return NewInline(opts...), nil
	}
	return nil, api.Errorf(api.ErrCodeNotSupported, "backend: unknown kind %q", string(kind))
}

// Close closes b if it owns resources.
func Close(b api.Backend) error {
	if c, ok := b.(api.Closer); ok {
		return c.Close()
	}
	if w, ok := b.(api.Waiter); ok {
		return w.Wait()
	}
	return nil
}
