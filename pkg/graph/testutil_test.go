package graph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// CounterUpdate adds to the counter when applied.
type CounterUpdate struct {
	Add int
}

// reduceCounter is the reducer used by counter graphs.
func reduceCounter(s Counter, u CounterUpdate) Counter {
	s.Value += u.Add
	return s
}

// TrackState records node visits and routing hints.
type TrackState struct {
	Progress []string
	GoLeft   bool
	Done     bool
}

// TrackUpdate appends visits; Done replaces the flag when set.
type TrackUpdate struct {
	Visited []string
	Done    *bool
}

// reduceTrack merges a TrackUpdate: visits append, Done replaces.
func reduceTrack(s TrackState, u TrackUpdate) TrackState {
	s.Progress = append(s.Progress, u.Visited...)
	if u.Done != nil {
		s.Done = *u.Done
	}
	return s
}

// Helper node functions

// increment is a node that adds one to the counter.
func increment(ctx Context, s Counter) (CounterUpdate, error) {
	return CounterUpdate{Add: 1}, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[TrackState, TrackUpdate] {
	return func(ctx Context, s TrackState) (TrackUpdate, error) {
		*tracker = append(*tracker, name)
		return TrackUpdate{Visited: []string{name}}, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[TrackState, TrackUpdate] {
	return func(ctx Context, s TrackState) (TrackUpdate, error) {
		return TrackUpdate{}, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[TrackState, TrackUpdate] {
	return func(ctx Context, s TrackState) (TrackUpdate, error) {
		panic(value)
	}
}

// boolp is a pointer helper for TrackUpdate literals.
func boolp(v bool) *bool { return &v }

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
