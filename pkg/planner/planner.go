// Package planner wires the conversation state machine for one travel
// planning turn: load saved preferences, absorb new ones, classify
// intent, run the tool-calling agent, pass the human checkpoints, and
// persist preferences before the turn ends.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"tripgraph/pkg/agent"
	"tripgraph/pkg/graph"
	"tripgraph/pkg/review"
	"tripgraph/pkg/session"
	"tripgraph/pkg/store"
)

// Node identifiers of the turn state machine.
const (
	NodeLoadPrefs    = "load_prefs"
	NodeParsePrefs   = "parse_prefs"
	NodeInjectPrefs  = "inject_prefs"
	NodeDetectIntent = "detect_intent"
	NodeReactAgent   = "react_agent"
	NodeFreeGate     = "free_gate"
	NodeStructReview = "structured_review"
	NodeSavePrefs    = "save_prefs"
)

// DefaultMaxRevisions bounds review loop-backs per turn before the
// gates force-approve.
const DefaultMaxRevisions = 3

// Planner runs multi-turn travel planning conversations over a
// compiled graph. It is safe for concurrent turns on distinct thread
// IDs; two concurrent turns on the same thread race on the preference
// store and are not supported.
type Planner struct {
	store        store.Store
	agent        agent.Agent
	freeGate     review.DraftReviewer
	structGate   review.SummaryReviewer
	maxRevisions int
	logger       *slog.Logger

	compiled *graph.CompiledGraph[session.State, session.Update]
}

// Option configures a Planner.
type Option func(*Planner)

// WithFreeGate enables interactive free-form review by default.
func WithFreeGate(g review.DraftReviewer) Option {
	return func(p *Planner) {
		p.freeGate = g
	}
}

// WithStructuredGate enables interactive structured review by default.
func WithStructuredGate(g review.SummaryReviewer) Option {
	return func(p *Planner) {
		p.structGate = g
	}
}

// WithMaxRevisions sets the per-turn revision bound.
func WithMaxRevisions(n int) Option {
	return func(p *Planner) {
		p.maxRevisions = n
	}
}

// WithLogger sets the structured logger for turns.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New builds and compiles the turn graph over the given collaborators.
func New(st store.Store, ag agent.Agent, opts ...Option) (*Planner, error) {
	if st == nil {
		return nil, fmt.Errorf("planner: store must not be nil")
	}
	if ag == nil {
		return nil, fmt.Errorf("planner: agent must not be nil")
	}

	p := &Planner{
		store:        st,
		agent:        ag,
		maxRevisions: DefaultMaxRevisions,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	compiled, err := p.buildGraph().Compile()
	if err != nil {
		return nil, fmt.Errorf("planner: compile turn graph: %w", err)
	}
	p.compiled = compiled
	return p, nil
}

func (p *Planner) buildGraph() *graph.Graph[session.State, session.Update] {
	return graph.New[session.State, session.Update](session.Reduce).
		AddNode(NodeLoadPrefs, p.loadPrefs).
		AddNode(NodeParsePrefs, p.parsePrefs).
		AddNode(NodeInjectPrefs, p.injectPrefs).
		AddNode(NodeDetectIntent, p.detectIntent).
		AddNode(NodeReactAgent, p.reactAgent).
		AddNode(NodeFreeGate, p.freeformReview).
		AddNode(NodeStructReview, p.structuredReview).
		AddNode(NodeSavePrefs, p.savePrefs).
		AddEdge(NodeLoadPrefs, NodeParsePrefs).
		AddEdge(NodeParsePrefs, NodeInjectPrefs).
		AddEdge(NodeInjectPrefs, NodeDetectIntent).
		AddConditionalEdge(NodeDetectIntent, routeIntent, NodeParsePrefs, NodeReactAgent).
		AddEdge(NodeReactAgent, NodeFreeGate).
		AddConditionalEdge(NodeFreeGate, routeFreeGate, NodeStructReview, NodeReactAgent).
		AddConditionalEdge(NodeStructReview, routeStructured, NodeSavePrefs, NodeReactAgent).
		AddEdge(NodeSavePrefs, graph.END).
		SetEntry(NodeLoadPrefs)
}

// routeIntent loops a non-tool turn through preference parsing once
// more, then advances to the agent so the turn still ends in a reply.
func routeIntent(_ graph.Context, s session.State) string {
	if !s.WantsTool && s.IntentPasses < 2 {
		return NodeParsePrefs
	}
	return NodeReactAgent
}

func routeFreeGate(_ graph.Context, s session.State) string {
	if s.Approved {
		return NodeStructReview
	}
	return NodeReactAgent
}

func routeStructured(_ graph.Context, s session.State) string {
	if s.ApprovedStruct {
		return NodeSavePrefs
	}
	return NodeReactAgent
}

// Result is the outcome of one turn.
type Result struct {
	// Messages is the full turn history, ending in an assistant message.
	Messages []session.Message

	// Preferences is the thread's preference map after the turn.
	Preferences map[string]string
}

// turnConfig carries per-invocation settings resolved from TurnOptions.
type turnConfig struct {
	gates   *turnGates
	runOpts []graph.RunOption
}

type turnGates struct {
	free       review.DraftReviewer
	structured review.SummaryReviewer
}

// TurnOption adjusts a single turn.
type TurnOption func(*turnConfig)

// WithAutoApprove disables both interactive gates for this turn.
func WithAutoApprove() TurnOption {
	return func(c *turnConfig) {
		c.gates = &turnGates{}
	}
}

// WithGates overrides the review gates for this turn. Nil gates
// auto-approve.
func WithGates(free review.DraftReviewer, structured review.SummaryReviewer) TurnOption {
	return func(c *turnConfig) {
		c.gates = &turnGates{free: free, structured: structured}
	}
}

// WithRunOptions forwards engine options (metrics, tracing, iteration
// bounds) to the underlying graph run.
func WithRunOptions(opts ...graph.RunOption) TurnOption {
	return func(c *turnConfig) {
		c.runOpts = append(c.runOpts, opts...)
	}
}

type ctxKey int

const gatesKey ctxKey = iota

func (p *Planner) resolve(opts []TurnOption) turnConfig {
	var cfg turnConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// gates returns the effective reviewers for the current run.
func (p *Planner) gates(ctx context.Context) (review.DraftReviewer, review.SummaryReviewer) {
	if g, ok := ctx.Value(gatesKey).(*turnGates); ok && g != nil {
		return g.free, g.structured
	}
	return p.freeGate, p.structGate
}

// Turn runs one conversation turn for the thread and blocks until the
// graph reaches its terminal node.
func (p *Planner) Turn(ctx context.Context, threadID string, messages []session.Message, opts ...TurnOption) (Result, error) {
	cfg := p.resolve(opts)
	final, err := p.compiled.Run(p.graphContext(ctx, cfg), session.New(threadID, messages), cfg.runOpts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: final.Messages, Preferences: final.Preferences}, nil
}

// TurnStream runs one turn and returns the event stream: one event per
// completed node plus token deltas from the agent, interleaved within
// the agent node's span.
func (p *Planner) TurnStream(ctx context.Context, threadID string, messages []session.Message, opts ...TurnOption) *graph.Stream[session.State, session.Update] {
	cfg := p.resolve(opts)
	return p.compiled.Stream(p.graphContext(ctx, cfg), session.New(threadID, messages), cfg.runOpts...)
}

func (p *Planner) graphContext(ctx context.Context, cfg turnConfig) graph.Context {
	if cfg.gates != nil {
		ctx = context.WithValue(ctx, gatesKey, cfg.gates)
	}
	return graph.NewContext(ctx, graph.WithLogger(p.logger))
}
