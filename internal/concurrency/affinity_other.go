// File: internal/concurrency/affinity_other.go
//go:build !linux && !windows

//
// Fallback for platforms without thread affinity control.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

const maxCPUID = 1 << 16

func platformNodeCPUs(int) []int { return nil }

func platformCurrentNUMANodeID() int { return -1 }

func platformNUMANodes() int { return 1 }

func platformPinCurrentThread(_, _ int) error { return ErrAffinityNotSupported }

func platformUnpinCurrentThread() error { return nil }

func platformThreadID() int { return -1 }
