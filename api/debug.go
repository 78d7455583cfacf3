// File: api/debug.go
// Author: momentics
//
// Runtime introspection of handle tables, backends and buffer accounting.

package api

// Debug exposes named probes evaluated on demand.
type Debug interface {
	// DumpState evaluates every probe. A panicking probe reports its panic
	// value instead of aborting the dump.
	DumpState() map[string]any

	// RegisterProbe inserts or replaces the probe under name.
	RegisterProbe(name string, fn func() any)
}
