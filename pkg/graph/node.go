package graph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and an immutable snapshot of the
// current state, and return a partial update (or a zero update) and any
// error. The engine merges the update into the state with the graph's
// reducer before resolving the next edge.
//
// Example:
//
//	func greet(ctx graph.Context, s State) (Update, error) {
//	    return Update{Messages: []Message{{Role: "assistant", Content: "hi"}}}, nil
//	}
type NodeFunc[S, U any] func(ctx Context, state S) (U, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime
// state. Routers must be pure functions of the state snapshot they are
// handed; they run after the preceding node's update has been merged.
//
// The router should return a node ID declared for the edge, or END.
// Returning an empty string or an undeclared node ID is a runtime error.
type RouterFunc[S any] func(ctx Context, state S) string

// Reducer merges a node's partial update into the state.
// It is supplied once when the graph is created and applied by the engine
// after every node completes.
type Reducer[S, U any] func(state S, update U) S
