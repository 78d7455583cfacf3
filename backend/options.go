// File: backend/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options shared by every backend constructor.

package backend

import (
	"runtime"

	"github.com/rs/zerolog"
)

type options struct {
	workers     int
	queueSize   int
	numaNode    int
	cpuAffinity bool
	log         zerolog.Logger
}

// Option configures a backend.
type Option func(*options)

func defaultOptions() options {
	return options{
		workers:  runtime.NumCPU(),
		numaNode: -1,
		log:      zerolog.Nop(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithWorkers sets the worker count. Values <= 0 keep runtime.NumCPU().
// For the spawn backend it bounds the number of concurrently running items.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the per-worker queue (graph) or shared queue (pool) capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithNUMANode binds workers to a NUMA node; negative disables binding.
func WithNUMANode(node int) Option {
	return func(o *options) { o.numaNode = node }
}

// WithCPUAffinity pins each worker thread to one CPU.
func WithCPUAffinity(enabled bool) Option {
	return func(o *options) { o.cpuAffinity = enabled }
}

// WithLogger sets the logger used for fault reports.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}
