package control

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	s, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "%T", agg)
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestTelemetry_RecordsDispatch(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	tel, err := NewTelemetry(mp, tp)
	require.NoError(t, err)

	_, end := tel.StartDispatch(context.Background(), "add_one", "graph", 8)
	end(nil)
	_, end = tel.StartDispatch(context.Background(), "archetypes", "pool", 4)
	end(errors.New("slice failed"))

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["dispatch.batches"]))
	assert.Equal(t, int64(12), sumOf(t, data["dispatch.items"]))
	assert.Equal(t, int64(1), sumOf(t, data["dispatch.faults"]))

	hist, ok := data["dispatch.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "dispatch.add_one", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, "dispatch.archetypes", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Len(t, spans[1].Events, 1, "error recorded as span event")
}

func TestTelemetry_GlobalProviders(t *testing.T) {
	tel, err := NewTelemetry(nil, nil)
	require.NoError(t, err)
	ctx, end := tel.StartDispatch(context.Background(), "noop", "inline", 1)
	assert.NotNil(t, ctx)
	end(nil)
}
