// File: facade/hioload.go
// Unified facade layer for hioload-slice.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine aggregates the dispatch backend, the handle table, control and
// telemetry behind one type. It builds the backend named in Config, exposes
// the reductions and raw dispatch paths, and records every dispatch in the
// metrics registry, the logs and (optionally) OpenTelemetry.

package facade

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-slice/adapters"
	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/backend"
	"github.com/momentics/hioload-slice/control"
	"github.com/momentics/hioload-slice/core/buffer"
	"github.com/momentics/hioload-slice/core/callback"
	"github.com/momentics/hioload-slice/core/partition"
	"github.com/momentics/hioload-slice/core/reduce"
	"github.com/momentics/hioload-slice/internal/logging"
)

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the logger built from Config.Logging.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithBackend makes the engine use b instead of building one from Config.
// The engine does not close it.
func WithBackend(b api.Backend) Option {
	return func(e *Engine) { e.backend, e.ownsBackend = b, false }
}

// WithProviders sets the OpenTelemetry providers used when telemetry is enabled.
func WithProviders(mp metric.MeterProvider, tp trace.TracerProvider) Option {
	return func(e *Engine) { e.meterProvider, e.tracerProvider = mp, tp }
}

// Engine is the main facade type.
type Engine struct {
	config  *Config
	log     zerolog.Logger
	backend api.Backend
	handles *callback.Table

	control   *adapters.ControlAdapter
	affinity  *adapters.AffinityAdapter
	telemetry *control.Telemetry

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	minChunk    atomic.Int64
	lenient     atomic.Bool
	ownsBackend bool

	mu      sync.RWMutex
	started bool
}

var _ api.GracefulShutdown = (*Engine)(nil)

// New validates cfg and wires every component. The backend's workers are
// started right away; Start only marks the engine ready and applies affinity.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("facade: invalid config: %w", err)
	}

	e := &Engine{
		config:      &c,
		log:         logging.New(c.Logging, "hioload-slice"),
		handles:     callback.NewTable(4),
		ownsBackend: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	root := e.log
	e.log = logging.Component(root, "facade")
	e.minChunk.Store(int64(c.MinChunk))
	e.lenient.Store(c.Lenient)

	if e.backend == nil {
		kind, _ := backend.ParseKind(c.Backend)
		b, err := backend.New(kind,
			backend.WithWorkers(c.Workers),
			backend.WithQueueSize(c.QueueSize),
			backend.WithNUMANode(c.NUMANode),
			backend.WithCPUAffinity(c.CPUAffinity),
			backend.WithLogger(root))
		if err != nil {
			return nil, err
		}
		e.backend = b
	}

	if c.EnableTelemetry {
		tel, err := control.NewTelemetry(e.meterProvider, e.tracerProvider)
		if err != nil {
			_ = e.closeBackend()
			return nil, err
		}
		e.telemetry = tel
	}

	e.control = adapters.NewControlAdapter(c.toMap())
	e.affinity = adapters.NewAffinityAdapter()
	e.control.OnReload(e.reload)
	if c.EnableDebug {
		e.registerProbes()
	}
	return e, nil
}

func (e *Engine) registerProbes() {
	e.control.RegisterDebugProbe("handles.live", func() any { return e.handles.Len() })
	e.control.RegisterDebugProbe("handles.slots", func() any { return e.handles.Cap() })
	e.control.RegisterDebugProbe("backend.kind", func() any { return e.config.Backend })
	if wc, ok := e.backend.(api.WorkerCounter); ok {
		e.control.RegisterDebugProbe("backend.workers", func() any { return wc.NumWorkers() })
	}
	if s, ok := e.backend.(interface{ Stats() map[string]int64 }); ok {
		e.control.RegisterDebugProbe("backend.stats", func() any { return s.Stats() })
	}
}

// reload picks up runtime-tunable keys from the control store.
func (e *Engine) reload() {
	cfg := e.control.GetConfig()
	if v, ok := asInt(cfg["min_chunk"]); ok && v > 0 {
		e.minChunk.Store(v)
	}
	if v, ok := cfg["lenient"].(bool); ok {
		e.lenient.Store(v)
	}
	e.log.Info().
		Int64("min_chunk", e.minChunk.Load()).
		Bool("lenient", e.lenient.Load()).
		Msg("configuration reloaded")
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Start pins the calling goroutine's OS thread when CPUAffinity and a NUMA
// node are set. The pin belongs to that thread: call Stop from the same
// goroutine to release it. Subsequent calls to Start() have no effect.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if e.config.CPUAffinity && e.config.NUMANode >= 0 {
		if err := e.affinity.Pin(-1, e.config.NUMANode); err != nil {
			e.log.Warn().Err(err).Int("numa_node", e.config.NUMANode).Msg("cpu affinity not applied")
		}
	}
	if e.config.EnableMetrics {
		e.control.Metrics().Set("metrics.enabled", true)
	}
	e.started = true
	e.log.Info().
		Str(logging.FieldBackend, e.config.Backend).
		Int(logging.FieldWorkers, e.Workers()).
		Msg("engine started")
	return nil
}

// Stop closes an owned backend and releases the pin Start made, provided it
// runs on the pinned thread. From any other goroutine the pin is left in place
// and reported in the log. On an engine that was never started it only
// releases the backend.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return e.closeBackend()
	}
	err := e.closeBackend()
	switch {
	case e.affinity.OnPinnedThread():
		if uerr := e.affinity.Unpin(); uerr != nil {
			e.log.Warn().Err(uerr).Msg("cpu affinity not released")
		}
	case e.affinity.Descriptor().Pinned:
		e.log.Warn().Msg("stop called off the pinned thread; affinity kept")
	}
	e.started = false
	e.log.Info().Err(err).Msg("engine stopped")
	return err
}

func (e *Engine) closeBackend() error {
	if !e.ownsBackend {
		return nil
	}
	return backend.Close(e.backend)
}

// Shutdown implements api.GracefulShutdown by delegating to Stop().
func (e *Engine) Shutdown() error {
	return e.Stop()
}

// Backend returns the dispatch backend.
func (e *Engine) Backend() api.Backend { return e.backend }

// GetControl returns the Control interface for dynamic config and metrics.
func (e *Engine) GetControl() api.Control { return e.control }

// GetAffinity returns the CPU/NUMA pinning manager for the calling thread.
func (e *Engine) GetAffinity() api.Affinity { return e.affinity }

// Handles returns the engine's handle table.
func (e *Engine) Handles() *callback.Table { return e.handles }

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config { return *e.config }

// Workers returns the backend worker count, or the configured one.
func (e *Engine) Workers() int {
	if wc, ok := e.backend.(api.WorkerCounter); ok {
		return wc.NumWorkers()
	}
	return e.config.Workers
}

// Reducer returns a reducer bound to this engine's backend and handle table.
func (e *Engine) Reducer() reduce.Reducer {
	return reduce.Reducer{
		Backend: e.backend,
		Workers: e.config.Workers,
		Lenient: e.lenient.Load(),
		Handles: e.handles,
	}
}

// MinChunk returns the current archetype minimum chunk size.
func (e *Engine) MinChunk() int { return int(e.minChunk.Load()) }

func (e *Engine) ready() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return api.NewError(api.ErrCodeClosed, "facade: engine not started")
	}
	return nil
}

// observe wraps one dispatch with logging, metrics and telemetry.
func (e *Engine) observe(ctx context.Context, operation string, items int, fn func() error) error {
	if err := e.ready(); err != nil {
		return err
	}
	batchID := uuid.NewString()
	end := func(error) {}
	if e.telemetry != nil {
		_, end = e.telemetry.StartDispatch(ctx, operation, e.config.Backend, items)
	}
	start := time.Now()

	err := fn()

	end(err)
	elapsed := time.Since(start)
	if e.config.EnableMetrics {
		m := e.control.Metrics()
		m.Add("dispatch.batches", 1)
		m.Add("dispatch.items", int64(items))
		if err != nil {
			m.Add("dispatch.faults", 1)
		}
		m.Set("buffer.live", buffer.Live())
	}
	ev := e.log.Debug()
	if err != nil {
		ev = e.log.Warn().Err(err)
	}
	ev.Str(logging.FieldBatchID, batchID).
		Str(logging.FieldOperation, operation).
		Int(logging.FieldItems, items).
		Float64(logging.FieldDuration, float64(elapsed.Microseconds())/1000).
		Msg("dispatch finished")
	return err
}

func nilInput(what string) error {
	return api.Errorf(api.ErrCodeUseAfterRelease, "facade: nil %s", what)
}

// AddOneAndSum increments every element of buf in parallel and returns the
// sum of the updated values.
func (e *Engine) AddOneAndSum(ctx context.Context, buf *buffer.Buffer[int32]) (int64, error) {
	if buf == nil {
		return 0, nilInput("buffer")
	}
	var total int64
	err := e.observe(ctx, "add_one_and_sum", buf.Len(), func() error {
		var err error
		total, err = e.Reducer().AddOneAndSum(buf)
		return err
	})
	return total, err
}

// Reduce applies op to uniform slices of buf and returns the sum of the results.
func (e *Engine) Reduce(ctx context.Context, buf *buffer.Buffer[int32], op reduce.ElementOp) (int64, error) {
	if buf == nil {
		return 0, nilInput("buffer")
	}
	var total int64
	err := e.observe(ctx, "reduce", buf.Len(), func() error {
		var err error
		total, err = e.Reducer().Buffer(buf, op)
		return err
	})
	return total, err
}

// Archetypes advances every position of set by velocity*dt and returns the
// sum of the updated positions.
func (e *Engine) Archetypes(ctx context.Context, set *reduce.ArchetypeSet, dt int32) (int64, error) {
	if set == nil {
		return 0, nilInput("archetype set")
	}
	var total int64
	items := 0
	for _, n := range set.Lengths() {
		items += n
	}
	err := e.observe(ctx, "archetypes", items, func() error {
		var err error
		total, err = e.Reducer().Archetypes(set, e.MinChunk(), dt)
		return err
	})
	return total, err
}

// ReduceSlices runs op over caller-built slices validated against lengths.
func (e *Engine) ReduceSlices(ctx context.Context, slices []partition.Slice, lengths []int, op reduce.SliceOp) (int64, error) {
	var total int64
	err := e.observe(ctx, "reduce_slices", len(slices), func() error {
		var err error
		total, err = e.Reducer().OverSlices(slices, lengths, op)
		return err
	})
	return total, err
}

// Dispatch runs work for every index through a handle; work may capture state.
func (e *Engine) Dispatch(ctx context.Context, count int, work api.WorkFunc) error {
	return e.observe(ctx, "dispatch", count, func() error {
		return e.handles.Dispatch(e.backend, count, work)
	})
}

// DispatchDirect runs a package-level function without a handle.
func (e *Engine) DispatchDirect(ctx context.Context, count int, work api.WorkFunc) error {
	return e.observe(ctx, "dispatch_direct", count, func() error {
		return callback.DispatchDirect(e.backend, count, work)
	})
}

// DispatchTasks runs tasks[i].Execute for every i through a handle.
func (e *Engine) DispatchTasks(ctx context.Context, tasks []callback.Task) error {
	return e.observe(ctx, "dispatch_tasks", len(tasks), func() error {
		return e.handles.DispatchTasks(e.backend, tasks)
	})
}
