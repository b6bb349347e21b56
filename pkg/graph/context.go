package graph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with engine services and metadata.
//
// Context is immutable after creation. The executor creates derived
// contexts for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node
	// context. Never returns nil - defaults to slog.Default() if not
	// configured.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Emit publishes a token-level delta for the current node. Deltas are
	// interleaved strictly within the emitting node's span of the event
	// stream. Outside a streaming run this is a no-op.
	Emit(delta string)
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	nodeID string
	emit   func(nodeID, delta string)
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Emit publishes a token-level delta for the current node.
func (c *executionContext) Emit(delta string) {
	if c.emit != nil {
		c.emit(c.nodeID, delta)
	}
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// engine services and metadata.
//
// Example:
//
//	ctx := graph.NewContext(context.Background(),
//	    graph.WithLogger(myLogger),
//	    graph.WithRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a new context with the given node ID set.
// Used internally by the executor to enrich the context per-node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID),
		runID:   c.runID,
		nodeID:  nodeID,
		emit:    c.emit,
	}
}

// withEmitter returns a new context wired to the given delta sink.
// Used internally when a run is streamed.
func (c *executionContext) withEmitter(emit func(nodeID, delta string)) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger,
		runID:   c.runID,
		nodeID:  c.nodeID,
		emit:    emit,
	}
}
