package graph

import (
	"log/slog"

	"tripgraph/pkg/graph/observability"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations  int
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 50,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 50
//
// Cyclic graphs terminate only when node logic selects a terminal edge;
// this limit is the safety net when it never does (an unbounded revision
// loop, for instance). If a run exceeds it, Run returns a
// MaxIterationsError wrapping ErrMaxIterations.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, graph.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithMetrics enables OpenTelemetry metrics for the run using the global
// meter provider.
func WithMetrics() RunOption {
	return func(c *runConfig) {
		c.metrics = observability.NewMetricsRecorder()
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry tracing for the run using the global
// tracer provider.
func WithTracing() RunOption {
	return func(c *runConfig) {
		c.spans = observability.NewSpanManager()
		c.tracingEnabled = true
	}
}

// WithSpanManager sets a custom span manager and enables tracing.
func WithSpanManager(m observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.spans = m
			c.tracingEnabled = true
		}
	}
}
