package graph

// EventKind discriminates stream event variants.
type EventKind string

// Stream event kinds.
const (
	// KindNode marks a completed node with its merged partial update.
	KindNode EventKind = "node"
	// KindDelta marks a token-level delta emitted from inside a node.
	KindDelta EventKind = "delta"
)

// Event is one element of a streamed run.
//
// Node events carry the partial update a node returned and arrive in
// exact node-completion order. Delta events carry token-level output
// emitted via Context.Emit and are interleaved strictly within the span
// of the node that produced them: after that node's predecessor event
// and before that node's own completion event.
type Event[U any] struct {
	Kind   EventKind
	Node   string
	Update U      // set for KindNode
	Delta  string // set for KindDelta
}

// Stream is a lazy, finite, non-restartable sequence of execution events
// plus the run's final result. Consume Events() until the channel closes,
// then call Wait() for the final state.
//
// A Stream is bound to one invocation. It cannot be restarted; call
// CompiledGraph.Stream again for a new run.
type Stream[S, U any] struct {
	events chan Event[U]
	done   chan struct{}

	final S
	err   error
}

// Events returns the event channel. It is closed when the run finishes,
// successfully or not. The producer blocks on delivery, so a consumer
// that stops reading stalls the run.
func (s *Stream[S, U]) Events() <-chan Event[U] {
	return s.events
}

// Wait blocks until the run finishes and returns the final state and any
// error. Safe to call from the goroutine draining Events() once the
// channel has closed.
func (s *Stream[S, U]) Wait() (S, error) {
	<-s.done
	return s.final, s.err
}

// Stream executes the graph like Run but additionally produces execution
// events: one KindNode event per completed node in completion order, and
// KindDelta events for token-level output nodes emit through Context.Emit.
//
// The returned Stream is lazy - execution begins immediately in a
// separate goroutine but makes progress only as fast as the consumer
// drains Events().
//
// Example:
//
//	stream := compiled.Stream(ctx, initialState)
//	for evt := range stream.Events() {
//	    switch evt.Kind {
//	    case graph.KindDelta:
//	        fmt.Print(evt.Delta)
//	    case graph.KindNode:
//	        fmt.Println("completed:", evt.Node)
//	    }
//	}
//	final, err := stream.Wait()
func (cg *CompiledGraph[S, U]) Stream(ctx Context, state S, opts ...RunOption) *Stream[S, U] {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Stream[S, U]{
		events: make(chan Event[U]),
		done:   make(chan struct{}),
	}

	// Deltas ride the same channel as node events so interleaving is a
	// property of send order, not of consumer scheduling.
	streamCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		streamCtx = ec.withEmitter(func(nodeID, delta string) {
			s.events <- Event[U]{Kind: KindDelta, Node: nodeID, Delta: delta}
		})
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		s.final, s.err = cg.run(streamCtx, state, &cfg, func(node string, update U) {
			s.events <- Event[U]{Kind: KindNode, Node: node, Update: update}
		})
	}()

	return s
}
