package graph

import "slices"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successors, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph[S, U any] struct {
	reduce           Reducer[S, U]
	nodes            map[string]NodeFunc[S, U]
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string

	// Pre-computed for efficient lookup
	predecessors  map[string][]string
	isConditional map[string]bool
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S, U]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S, U]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S, U]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the node IDs reachable from the given node: simple
// edge targets, or the declared target table for conditional nodes.
// Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S, U]) Successors(id string) []string {
	if id == END {
		return nil
	}
	if ce, ok := cg.conditionalEdges[id]; ok {
		return slices.Clone(ce.targets)
	}
	return cg.edges[id]
}

// Predecessors returns the node IDs that have simple edges to the given node.
// Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph[S, U]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S, U]) IsConditional(id string) bool {
	return cg.isConditional[id]
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S, U]) getNode(id string) (NodeFunc[S, U], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getRouter returns the conditional edge for the given node.
// Used internally by the executor.
func (cg *CompiledGraph[S, U]) getRouter(id string) (conditionalEdge[S], bool) {
	ce, exists := cg.conditionalEdges[id]
	return ce, exists
}

// getEdges returns the simple edge targets for the given node.
// Used internally by the executor.
func (cg *CompiledGraph[S, U]) getEdges(id string) []string {
	return cg.edges[id]
}
