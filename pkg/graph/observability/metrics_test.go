package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a manual-reader meter provider and returns
// the reader plus a cleanup restoring the global provider.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutting down meter provider: %v", err)
		}
	}
	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumHasAttr reports whether any datapoint of a Sum carries the given
// string attribute.
func sumHasAttr(m *metricdata.Metrics, key, value string) bool {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return false
	}
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if string(attr.Key) == key && attr.Value.AsString() == value {
				return true
			}
		}
	}
	return false
}

func TestRecordNodeExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordNodeExecution(ctx, "react_agent", 50*time.Millisecond, nil)

	rm := collectMetrics(t, reader)
	execs := findMetric(rm, "tripgraph.node.executions")
	require.NotNil(t, execs)
	assert.True(t, sumHasAttr(execs, "node_id", "react_agent"))

	latency := findMetric(rm, "tripgraph.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)

	// No error: the error counter has no datapoints yet.
	assert.Nil(t, findMetric(rm, "tripgraph.node.errors"))

	m.RecordNodeExecution(ctx, "save_prefs", 5*time.Millisecond, errors.New("store down"))
	rm = collectMetrics(t, reader)
	nodeErrs := findMetric(rm, "tripgraph.node.errors")
	require.NotNil(t, nodeErrs)
	assert.True(t, sumHasAttr(nodeErrs, "node_id", "save_prefs"))
}

func TestRecordGraphRun(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordGraphRun(ctx, true, 300*time.Millisecond)
	m.RecordGraphRun(ctx, false, 10*time.Millisecond)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "tripgraph.graph.runs")
	require.NotNil(t, runs)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)
}

func TestRecordReviewDecision(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordReviewDecision(context.Background(), "freeform", "approve")

	rm := collectMetrics(t, reader)
	decisions := findMetric(rm, "tripgraph.review.decisions")
	require.NotNil(t, decisions)
	assert.True(t, sumHasAttr(decisions, "gate", "freeform"))
	assert.True(t, sumHasAttr(decisions, "decision", "approve"))
}

func TestRecordStoreOp(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordStoreOp(ctx, "batch_put", 2*time.Millisecond, nil)
	m.RecordStoreOp(ctx, "get", time.Millisecond, errors.New("closed"))

	rm := collectMetrics(t, reader)
	ops := findMetric(rm, "tripgraph.store.operations")
	require.NotNil(t, ops)
	assert.True(t, sumHasAttr(ops, "op", "batch_put"))
	assert.True(t, sumHasAttr(ops, "op", "get"))

	latency := findMetric(rm, "tripgraph.store.latency_ms")
	require.NotNil(t, latency)
}

func TestNoopMetricsRecords(t *testing.T) {
	// Purely that the no-op methods are safe to call.
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	m.RecordNodeExecution(ctx, "n", time.Millisecond, nil)
	m.RecordGraphRun(ctx, true, time.Millisecond)
	m.RecordReviewDecision(ctx, "freeform", "approve")
	m.RecordStoreOp(ctx, "get", time.Millisecond, nil)
}
