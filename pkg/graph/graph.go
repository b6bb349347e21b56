package graph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use New to create a graph with its reducer, then chain AddNode, AddEdge,
// AddConditionalEdge, and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph that
// can be shared.
//
// Example:
//
//	g := graph.New[State, Update](Reduce).
//	    AddNode("parse", parseNode).
//	    AddNode("respond", respondNode).
//	    AddEdge("parse", "respond").
//	    AddEdge("respond", graph.END).
//	    SetEntry("parse")
//
//	compiled, err := g.Compile()
type Graph[S, U any] struct {
	mu               sync.RWMutex
	reduce           Reducer[S, U]
	nodes            map[string]NodeFunc[S, U]
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string
}

// conditionalEdge pairs a router with its declared target table.
// Targets are validated at Compile() time; at runtime the router may only
// return one of them.
type conditionalEdge[S any] struct {
	router  RouterFunc[S]
	targets []string
}

// New creates a graph builder for state type S and update type U.
// The reducer merges each node's partial update into the state.
//
// Panics if reduce is nil.
func New[S, U any](reduce Reducer[S, U]) *Graph[S, U] {
	if reduce == nil {
		panic("graph: reducer cannot be nil")
	}
	return &Graph[S, U]{
		reduce:           reduce,
		nodes:            make(map[string]NodeFunc[S, U]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S, U]) AddNode(id string, fn NodeFunc[S, U]) *Graph[S, U] {
	if id == "" {
		panic("graph: node ID cannot be empty")
	}

	// Check reserved words (case-insensitive)
	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("graph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("graph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("graph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("graph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or graph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S, U]) AddEdge(from, to string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc determines
// the next node at runtime based on state. The targets list declares every
// node ID the router may return (graph.END included); each is checked to
// exist at Compile() time, and a router returning anything outside the
// table fails the run with a RouterError.
//
// Returns the graph for method chaining.
//
// A node can have either simple edges or a conditional edge, not both.
// If both are present, the conditional edge takes precedence.
//
// Panics if router is nil or no targets are declared.
func (g *Graph[S, U]) AddConditionalEdge(from string, router RouterFunc[S], targets ...string) *Graph[S, U] {
	if router == nil {
		panic("graph: router function cannot be nil")
	}
	if len(targets) == 0 {
		panic("graph: conditional edge must declare at least one target")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = conditionalEdge[S]{
		router:  router,
		targets: append([]string(nil), targets...),
	}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S, U]) SetEntry(id string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
