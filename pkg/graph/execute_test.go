package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_Linear executes a simple linear graph.
func TestRun_Linear(t *testing.T) {
	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

// TestRun_NilContext tests that a nil context is rejected.
func TestRun_NilContext(t *testing.T) {
	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(nil, Counter{})
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestRun_ExecutionOrder verifies nodes execute in edge order.
func TestRun_ExecutionOrder(t *testing.T) {
	var tracker []string

	compiled, err := New[TrackState, TrackUpdate](reduceTrack).
		AddNode("first", makeTrackingNode("first", &tracker)).
		AddNode("second", makeTrackingNode("second", &tracker)).
		AddNode("third", makeTrackingNode("third", &tracker)).
		AddEdge("first", "second").
		AddEdge("second", "third").
		AddEdge("third", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), TrackState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, tracker)
	assert.Equal(t, []string{"first", "second", "third"}, result.Progress)
}

// TestRun_ConditionalRouting verifies routers select the next node from
// merged state.
func TestRun_ConditionalRouting(t *testing.T) {
	var tracker []string

	router := func(ctx Context, s TrackState) string {
		if s.GoLeft {
			return "left"
		}
		return "right"
	}

	compiled, err := New[TrackState, TrackUpdate](reduceTrack).
		AddNode("start", makeTrackingNode("start", &tracker)).
		AddNode("left", makeTrackingNode("left", &tracker)).
		AddNode("right", makeTrackingNode("right", &tracker)).
		AddConditionalEdge("start", router, "left", "right").
		AddEdge("left", END).
		AddEdge("right", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), TrackState{GoLeft: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "right"}, tracker)
}

// TestRun_Cycle verifies a revision-style loop terminates when node logic
// flips the exit flag.
func TestRun_Cycle(t *testing.T) {
	visits := 0

	loop := func(ctx Context, s TrackState) (TrackUpdate, error) {
		visits++
		if visits >= 3 {
			return TrackUpdate{Visited: []string{"loop"}, Done: boolp(true)}, nil
		}
		return TrackUpdate{Visited: []string{"loop"}}, nil
	}

	router := func(ctx Context, s TrackState) string {
		if s.Done {
			return END
		}
		return "loop"
	}

	compiled, err := New[TrackState, TrackUpdate](reduceTrack).
		AddNode("loop", loop).
		AddConditionalEdge("loop", router, "loop", END).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), TrackState{})
	require.NoError(t, err)
	assert.Equal(t, 3, visits)
	assert.Len(t, result.Progress, 3)
}

// TestRun_MaxIterations verifies the loop guard fires on unbounded cycles.
func TestRun_MaxIterations(t *testing.T) {
	router := func(ctx Context, s Counter) string { return "spin" }

	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("spin", increment).
		AddConditionalEdge("spin", router, "spin", END).
		SetEntry("spin").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithMaxIterations(5))
	assert.ErrorIs(t, err, ErrMaxIterations)

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, "spin", maxErr.LastNodeID)
}

// TestRun_NodeError verifies a failing node aborts the run and the caller
// sees the state as of just before that node.
func TestRun_NodeError(t *testing.T) {
	var tracker []string
	boom := errors.New("boom")

	compiled, err := New[TrackState, TrackUpdate](reduceTrack).
		AddNode("ok", makeTrackingNode("ok", &tracker)).
		AddNode("bad", makeFailingNode(boom)).
		AddEdge("ok", "bad").
		AddEdge("bad", END).
		SetEntry("ok").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), TrackState{})
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "bad", nodeErr.NodeID)

	// State reflects everything merged before the failing node.
	assert.Equal(t, []string{"ok"}, result.Progress)
}

// TestRun_PanicRecovery verifies node panics become PanicError.
func TestRun_PanicRecovery(t *testing.T) {
	compiled, err := New[TrackState, TrackUpdate](reduceTrack).
		AddNode("bad", makePanicNode("kaboom")).
		AddEdge("bad", END).
		SetEntry("bad").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), TrackState{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "bad", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

// TestRun_RouterUndeclaredTarget verifies a router escaping its declared
// table fails the run.
func TestRun_RouterUndeclaredTarget(t *testing.T) {
	router := func(ctx Context, s Counter) string { return "rogue" }

	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("a", increment).
		AddNode("rogue", increment).
		AddEdge("rogue", END).
		AddConditionalEdge("a", router, END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{})
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "a", routerErr.FromNode)
	assert.Equal(t, "rogue", routerErr.Returned)
}

// TestRun_RouterEmptyResult verifies an empty router result fails the run.
func TestRun_RouterEmptyResult(t *testing.T) {
	router := func(ctx Context, s Counter) string { return "" }

	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("a", increment).
		AddConditionalEdge("a", router, END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{})
	assert.ErrorIs(t, err, ErrInvalidRouterResult)
}

// TestRun_Cancellation verifies context cancellation stops the run before
// the next node.
func TestRun_Cancellation(t *testing.T) {
	cancelCtx, cancel := context.WithCancel(context.Background())

	first := func(ctx Context, s Counter) (CounterUpdate, error) {
		cancel() // cancel mid-run; next node must not execute
		return CounterUpdate{Add: 1}, nil
	}

	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("first", first).
		AddNode("second", increment).
		AddEdge("first", "second").
		AddEdge("second", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(cancelCtx), Counter{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "second", cancelErr.NodeID)
	assert.Equal(t, 1, result.Value) // first node's update was merged
}

// TestRun_NodeSeesMergedState verifies each node observes updates merged
// from its predecessors.
func TestRun_NodeSeesMergedState(t *testing.T) {
	var observed []int

	watch := func(ctx Context, s Counter) (CounterUpdate, error) {
		observed = append(observed, s.Value)
		return CounterUpdate{Add: 10}, nil
	}

	compiled, err := New[Counter, CounterUpdate](reduceCounter).
		AddNode("a", watch).
		AddNode("b", watch).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 11}, observed)
	assert.Equal(t, 21, result.Value)
}
