package planner_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgraph/pkg/agent"
	"tripgraph/pkg/graph"
	"tripgraph/pkg/planner"
	"tripgraph/pkg/review"
	"tripgraph/pkg/session"
	"tripgraph/pkg/store"
)

// fakeAgent appends a scripted assistant reply per invocation and
// records the history it was handed.
type fakeAgent struct {
	mu        sync.Mutex
	replies   []string
	calls     int
	histories [][]session.Message
}

func (f *fakeAgent) Invoke(_ context.Context, history []session.Message, opts ...agent.InvokeOption) ([]session.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg := agent.ResolveInvokeOptions(opts...)
	f.histories = append(f.histories, slices.Clone(history))

	reply := "Here is your plan."
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++

	if cfg.Delta != nil {
		cfg.Delta(reply)
	}
	return append(slices.Clone(history), session.Assistant(reply)), nil
}

// countingStore counts BatchPut calls for exactly-once assertions.
type countingStore struct {
	store.Store
	mu        sync.Mutex
	batchPuts int
}

func (c *countingStore) BatchPut(ctx context.Context, thread string, values map[string]string) error {
	c.mu.Lock()
	c.batchPuts++
	c.mu.Unlock()
	return c.Store.BatchPut(ctx, thread, values)
}

// scriptedSummaryReviewer replays decisions in order, repeating the
// last one.
type scriptedSummaryReviewer struct {
	decisions []review.Decision
	i         int
}

func (r *scriptedSummaryReviewer) ReviewSummary(context.Context, []session.Message) (review.Decision, error) {
	d := r.decisions[min(r.i, len(r.decisions)-1)]
	r.i++
	return d, nil
}

type scriptedDraftReviewer struct {
	decisions []review.Decision
	i         int
}

func (r *scriptedDraftReviewer) ReviewDraft(context.Context, string) review.Decision {
	d := r.decisions[min(r.i, len(r.decisions)-1)]
	r.i++
	return d
}

func newPlanner(t *testing.T, st store.Store, ag agent.Agent, opts ...planner.Option) *planner.Planner {
	t.Helper()
	p, err := planner.New(st, ag, opts...)
	require.NoError(t, err)
	return p
}

// TestTurn_SingleReactPass verifies a tool-wanting turn with both
// gates auto-approving reaches the end after exactly one agent pass.
func TestTurn_SingleReactPass(t *testing.T) {
	ag := &fakeAgent{}
	p := newPlanner(t, store.NewMemory(), ag)

	res, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("Find me a flight to Rome")})
	require.NoError(t, err)

	assert.Equal(t, 1, ag.calls)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, session.RoleAssistant, res.Messages[len(res.Messages)-1].Role)
}

// TestTurn_PreferenceOnlyTurn verifies the absorb cycle terminates and
// the preferences land in the store.
func TestTurn_PreferenceOnlyTurn(t *testing.T) {
	ag := &fakeAgent{replies: []string{"Noted, I'll remember that."}}
	st := store.NewMemory()
	p := newPlanner(t, st, ag)
	ctx := context.Background()

	res, err := p.Turn(ctx, "user123",
		[]session.Message{session.User("I prefer 4-star hotels and a $2000 budget")})
	require.NoError(t, err)

	assert.Equal(t, 1, ag.calls)
	assert.Equal(t, "4-star", res.Preferences["hotel_class"])
	assert.Equal(t, "2000", res.Preferences["budget"])

	hotel, err := st.Get(ctx, "user123", "hotel_class", "")
	require.NoError(t, err)
	assert.Equal(t, "4-star", hotel)

	budget, err := st.Get(ctx, "user123", "budget", "")
	require.NoError(t, err)
	assert.Equal(t, "2000", budget)
}

// TestTurn_TwoTurnScenario verifies preferences saved in turn one are
// available right after the load step of an unrelated turn two.
func TestTurn_TwoTurnScenario(t *testing.T) {
	ag := &fakeAgent{}
	st := store.NewMemory()
	p := newPlanner(t, st, ag)
	ctx := context.Background()

	_, err := p.Turn(ctx, "user123",
		[]session.Message{session.User("I prefer 4-star hotels and a $2000 budget")})
	require.NoError(t, err)

	res, err := p.Turn(ctx, "user123",
		[]session.Message{session.User("thanks, that was helpful")})
	require.NoError(t, err)

	assert.Equal(t, "4-star", res.Preferences["hotel_class"])
	assert.Equal(t, "2000", res.Preferences["budget"])

	// The second turn's agent history carries the injected directive.
	secondHistory := ag.histories[len(ag.histories)-1]
	foundDirective := false
	for _, m := range secondHistory {
		if m.Role == session.RoleSystem &&
			strings.Contains(m.Content, "4-star") &&
			strings.Contains(m.Content, "2000") {
			foundDirective = true
		}
	}
	assert.True(t, foundDirective, "expected injected preference directive in agent history")
}

// TestTurn_ThreadIsolation verifies turns on distinct threads never
// observe each other's preferences.
func TestTurn_ThreadIsolation(t *testing.T) {
	ag := &fakeAgent{}
	st := store.NewMemory()
	p := newPlanner(t, st, ag)
	ctx := context.Background()

	_, err := p.Turn(ctx, "alice",
		[]session.Message{session.User("I prefer 5-star hotels")})
	require.NoError(t, err)

	res, err := p.Turn(ctx, "bob",
		[]session.Message{session.User("find me a hotel")})
	require.NoError(t, err)

	assert.NotContains(t, res.Preferences, "hotel_class")
}

// TestTurn_ExactlyOncePersistence drives the structured gate through a
// revise-then-approve loop and checks a single batch write.
func TestTurn_ExactlyOncePersistence(t *testing.T) {
	ag := &fakeAgent{replies: []string{"Draft one.", "Draft two."}}
	st := &countingStore{Store: store.NewMemory()}
	gate := &scriptedSummaryReviewer{decisions: []review.Decision{
		{Action: review.Revise, Feedback: "add a cheaper option"},
		{Action: review.Approve},
	}}
	p := newPlanner(t, st, ag, planner.WithStructuredGate(gate))

	res, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a 4-star hotel, budget: 2000")})
	require.NoError(t, err)

	assert.Equal(t, 2, ag.calls)
	assert.Equal(t, 1, st.batchPuts)

	// Feedback became a user message and the turn ends on draft two.
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, "Draft two.", last.Content)

	assistants := 0
	for _, m := range res.Messages {
		if m.Role == session.RoleAssistant {
			assistants++
		}
	}
	assert.Equal(t, 2, assistants, "no duplicate terminal message")
}

// TestTurn_FreeGateEditLoops verifies edit feedback reaches the agent
// on the next pass.
func TestTurn_FreeGateEditLoops(t *testing.T) {
	ag := &fakeAgent{replies: []string{"Draft one.", "Draft two."}}
	gate := &scriptedDraftReviewer{decisions: []review.Decision{
		{Action: review.Edit, Feedback: "mention breakfast"},
		{Action: review.Approve},
	}}
	p := newPlanner(t, store.NewMemory(), ag, planner.WithFreeGate(gate))

	_, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a hotel")})
	require.NoError(t, err)

	require.Equal(t, 2, ag.calls)
	secondHistory := ag.histories[1]
	last := secondHistory[len(secondHistory)-1]
	assert.Equal(t, session.RoleUser, last.Role)
	assert.Equal(t, "mention breakfast", last.Content)
}

// TestTurn_RevisionBoundForceApproves verifies a gate that never
// approves cannot loop forever.
func TestTurn_RevisionBoundForceApproves(t *testing.T) {
	ag := &fakeAgent{}
	gate := &scriptedSummaryReviewer{decisions: []review.Decision{
		{Action: review.Revise},
	}}
	p := newPlanner(t, store.NewMemory(), ag,
		planner.WithStructuredGate(gate),
		planner.WithMaxRevisions(2))

	res, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a hotel")})
	require.NoError(t, err)

	assert.Equal(t, 3, ag.calls)
	assert.Equal(t, session.RoleAssistant, res.Messages[len(res.Messages)-1].Role)
}

// TestTurn_GateOverridePerInvocation verifies TurnOption gates replace
// the planner defaults for one turn only.
func TestTurn_GateOverridePerInvocation(t *testing.T) {
	ag := &fakeAgent{}
	alwaysRevise := &scriptedSummaryReviewer{decisions: []review.Decision{{Action: review.Revise}}}
	p := newPlanner(t, store.NewMemory(), ag, planner.WithStructuredGate(alwaysRevise))

	// Override to auto-approve: the default gate must not run.
	_, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a hotel")},
		planner.WithAutoApprove())
	require.NoError(t, err)

	assert.Equal(t, 1, ag.calls)
	assert.Equal(t, 0, alwaysRevise.i)
}

// TestTurn_StoreFailureIsFatal verifies a broken store aborts the turn.
func TestTurn_StoreFailureIsFatal(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Close())
	p := newPlanner(t, st, &fakeAgent{})

	_, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a hotel")})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}

// TestTurnStream verifies node events arrive in completion order with
// agent deltas inside the react_agent span.
func TestTurnStream(t *testing.T) {
	ag := &fakeAgent{replies: []string{"Streamed plan."}}
	p := newPlanner(t, store.NewMemory(), ag)

	stream := p.TurnStream(context.Background(), "user123",
		[]session.Message{session.User("find me a flight to Rome")})

	var nodes []string
	var deltas []string
	deltaAfterAgentStartedOnly := true
	seenAgentNode := false
	for ev := range stream.Events() {
		switch ev.Kind {
		case graph.KindNode:
			nodes = append(nodes, ev.Node)
			if ev.Node == planner.NodeReactAgent {
				seenAgentNode = true
			}
		case graph.KindDelta:
			deltas = append(deltas, ev.Delta)
			if seenAgentNode {
				// Delta after the node completion event breaks the span contract.
				deltaAfterAgentStartedOnly = false
			}
		}
	}

	final, err := stream.Wait()
	require.NoError(t, err)

	assert.Equal(t, []string{
		planner.NodeLoadPrefs,
		planner.NodeParsePrefs,
		planner.NodeInjectPrefs,
		planner.NodeDetectIntent,
		planner.NodeReactAgent,
		planner.NodeFreeGate,
		planner.NodeStructReview,
		planner.NodeSavePrefs,
	}, nodes)
	assert.Equal(t, []string{"Streamed plan."}, deltas)
	assert.True(t, deltaAfterAgentStartedOnly)
	assert.True(t, final.Saved)
}

// TestTurn_NoDirectiveWithoutPreferences verifies no system message is
// injected when nothing is known about the traveler.
func TestTurn_NoDirectiveWithoutPreferences(t *testing.T) {
	ag := &fakeAgent{}
	p := newPlanner(t, store.NewMemory(), ag)

	_, err := p.Turn(context.Background(), "user123",
		[]session.Message{session.User("find me a flight to Rome")})
	require.NoError(t, err)

	for _, m := range ag.histories[0] {
		assert.NotEqual(t, session.RoleSystem, m.Role)
	}
}
