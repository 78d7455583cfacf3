// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime control layer of the dispatch engine: live configuration with
// reload listeners, counter snapshots, debug probes and OpenTelemetry
// instruments for batch dispatch.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload notification
//   - Dispatch counters and duration histograms
//   - Debug probes for backend and handle-table inspection
package control
