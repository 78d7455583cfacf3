// File: control/telemetry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OpenTelemetry instruments for batch dispatch: counters for batches, items
// and faults, a duration histogram, and one span per dispatch.

package control

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies meters and tracers created by this package.
const InstrumentationName = "github.com/momentics/hioload-slice"

// Telemetry records dispatch events.
type Telemetry struct {
	tracer   trace.Tracer
	batches  metric.Int64Counter
	items    metric.Int64Counter
	faults   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTelemetry creates instruments on mp and tp; nil providers fall back to
// the otel globals.
func NewTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) (*Telemetry, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := mp.Meter(InstrumentationName)

	batches, err := meter.Int64Counter("dispatch.batches",
		metric.WithDescription("Number of dispatched batches"))
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.batches counter: %w", err)
	}
	items, err := meter.Int64Counter("dispatch.items",
		metric.WithDescription("Number of dispatched work items"))
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.items counter: %w", err)
	}
	faults, err := meter.Int64Counter("dispatch.faults",
		metric.WithDescription("Number of failed batches"))
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.faults counter: %w", err)
	}
	duration, err := meter.Float64Histogram("dispatch.duration",
		metric.WithDescription("Duration of a batch in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.duration histogram: %w", err)
	}

	return &Telemetry{
		tracer:   tp.Tracer(InstrumentationName),
		batches:  batches,
		items:    items,
		faults:   faults,
		duration: duration,
	}, nil
}

// StartDispatch opens a span for one dispatch of items work items on backend.
// The returned function ends the span and records the metrics; pass it the
// dispatch error, if any.
func (t *Telemetry) StartDispatch(ctx context.Context, operation, backend string, items int) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("backend", backend),
	}
	ctx, span := t.tracer.Start(ctx, "dispatch."+operation,
		trace.WithAttributes(append(attrs, attribute.Int("items", items))...))
	start := time.Now()

	return ctx, func(err error) {
		set := metric.WithAttributes(attrs...)
		t.batches.Add(ctx, 1, set)
		t.items.Add(ctx, int64(items), set)
		t.duration.Record(ctx, time.Since(start).Seconds(), set)
		if err != nil {
			t.faults.Add(ctx, 1, set)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
