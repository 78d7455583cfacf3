// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-slice/backend"
	"github.com/momentics/hioload-slice/internal/logging"
)

// Config holds parameters immutable per run. MinChunk and Lenient may also be
// changed at runtime through the Control interface.
type Config struct {
	Backend         string         `mapstructure:"backend" yaml:"backend"`           // graph | pool | spawn | inline
	Workers         int            `mapstructure:"workers" yaml:"workers"`           // worker threads, 0 = NumCPU
	QueueSize       int            `mapstructure:"queue_size" yaml:"queue_size"`     // per-worker (graph) or shared (pool) queue
	MinChunk        int            `mapstructure:"min_chunk" yaml:"min_chunk"`       // archetype partition minimum chunk
	NUMANode        int            `mapstructure:"numa_node" yaml:"numa_node"`       // -1 = no node binding
	CPUAffinity     bool           `mapstructure:"cpu_affinity" yaml:"cpu_affinity"` // pin each worker to a CPU
	Lenient         bool           `mapstructure:"lenient" yaml:"lenient"`           // clamp bad slices instead of failing
	EnableMetrics   bool           `mapstructure:"enable_metrics" yaml:"enable_metrics"`
	EnableDebug     bool           `mapstructure:"enable_debug" yaml:"enable_debug"`
	EnableTelemetry bool           `mapstructure:"enable_telemetry" yaml:"enable_telemetry"`
	Logging         logging.Config `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Backend:         string(backend.KindGraph),
		Workers:         runtime.NumCPU(),
		QueueSize:       1024,
		MinChunk:        4096,
		NUMANode:        -1,
		CPUAffinity:     false,
		EnableMetrics:   true,
		EnableDebug:     true,
		EnableTelemetry: false,
		Logging:         logging.DefaultConfig(),
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = string(backend.KindGraph)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MinChunk <= 0 {
		c.MinChunk = 4096
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got: %d)", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must be >= 0 (got: %d)", c.QueueSize)
	}
	if c.MinChunk <= 0 {
		return fmt.Errorf("min_chunk must be > 0 (got: %d)", c.MinChunk)
	}
	return c.Logging.Validate()
}

// toMap renders the runtime-visible subset for the Control store.
func (c *Config) toMap() map[string]any {
	return map[string]any{
		"backend":      c.Backend,
		"workers":      c.Workers,
		"queue_size":   c.QueueSize,
		"min_chunk":    c.MinChunk,
		"numa_node":    c.NUMANode,
		"cpu_affinity": c.CPUAffinity,
		"lenient":      c.Lenient,
	}
}
