// Package graph implements the orchestration engine behind tripgraph:
// a directed, possibly cyclic graph of named processing nodes executed
// sequentially over shared state.
//
// # Model
//
// A graph is built from nodes and edges, then compiled:
//
//	g := graph.New[State, Update](Reduce).
//	    AddNode("load", loadNode).
//	    AddNode("plan", planNode).
//	    AddEdge("load", "plan").
//	    AddConditionalEdge("plan", route, "load", graph.END).
//	    SetEntry("load")
//	compiled, err := g.Compile()
//
// Nodes return partial updates which the engine merges into the state via
// the reducer supplied to New. Conditional edges route on an immutable
// snapshot of the merged state and declare their possible targets up
// front; Compile verifies every declared target exists.
//
// # Execution
//
// Run executes nodes strictly sequentially until an edge reaches END.
// Cycles are permitted - the engine does not detect them; termination is a
// property of node logic, with WithMaxIterations as the safety net. An
// unhandled node error (or panic, surfaced as a PanicError) aborts the
// invocation and returns the state as of just before the failing node.
//
// Stream runs the same loop while producing an ordered event sequence:
// one event per completed node, with token-level deltas from
// Context.Emit interleaved inside the emitting node's span.
package graph
