package graph

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"tripgraph/pkg/graph/observability"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// Execution is single-threaded and sequential: one node runs to
// completion, its partial update is merged into the state via the
// reducer, then the next edge is resolved and followed. No node runs
// concurrently with another in the same invocation.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state as of just before the failing node.
//
// Example:
//
//	ctx := graph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S, U]) Run(ctx Context, state S, opts ...RunOption) (S, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cg.run(ctx, state, &cfg, nil)
}

// run is the shared execution loop behind Run and Stream. When sink is
// non-nil it receives one (node, update) event per completed node, in
// exact node-completion order.
func (cg *CompiledGraph[S, U]) run(ctx Context, state S, cfg *runConfig, sink func(node string, update U)) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg.logger = ctx.Logger()
	runID := ctx.RunID()

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	// Start run span if tracing enabled
	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "tripgraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.runLoop(execCtx, ctx, state, cfg, sink)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		lastNode := ""
		switch e := runErr.(type) {
		case *NodeError:
			lastNode = e.NodeID
		case *PanicError:
			lastNode = e.NodeID
		case *MaxIterationsError:
			lastNode = e.LastNodeID
		case *CancellationError:
			lastNode = e.NodeID
		}
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, runID, durationMs, nodeCount)
	}

	return result, runErr
}

// runLoop executes nodes from the entry point until END.
// tracingCtx carries span context; gctx is the engine Context.
// Returns the final state, node count, and any error.
func (cg *CompiledGraph[S, U]) runLoop(tracingCtx context.Context, gctx Context, state S, cfg *runConfig, sink func(node string, update U)) (S, int, error) {
	current := cg.entryPoint
	iterations := 0
	nodeCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		// Check for cancellation before executing the node
		select {
		case <-gctx.Done():
			return state, nodeCount, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  gctx.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()

		update, nodeErr := cg.executeNode(gctx, current, state)

		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		// Merge the partial update, then emit it in completion order.
		state = cg.reduce(state, update)
		if sink != nil {
			sink(current, update)
		}

		next, err := cg.nextNode(gctx, state, current)
		if err != nil {
			return state, nodeCount, err
		}

		current = next
	}

	return state, nodeCount, nil
}

// executeNode executes a single node with panic recovery.
// Returns the node's partial update and any error (including wrapped panics).
func (cg *CompiledGraph[S, U]) executeNode(ctx Context, nodeID string, state S) (update U, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// This shouldn't happen if compilation was successful
		return update, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	// Create node-specific context with enriched logger
	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	update, err = fn(nodeCtx, state)
	if err != nil {
		return update, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return update, nil
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges. A conditional
// router may only return a node from its declared target table.
func (cg *CompiledGraph[S, U]) nextNode(ctx Context, state S, current string) (string, error) {
	if ce, exists := cg.getRouter(current); exists {
		// Create node-specific context for the router
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := ce.router(routerCtx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if !slices.Contains(ce.targets, next) {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrRouterTargetNotFound,
			}
		}

		return next, nil
	}

	edges := cg.getEdges(current)
	if len(edges) == 0 {
		// No outgoing edges - this shouldn't happen if compilation was successful
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// For simple edges, take the first one.
	return edges[0], nil
}
