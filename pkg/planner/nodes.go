package planner

import (
	"fmt"
	"maps"

	"tripgraph/pkg/agent"
	"tripgraph/pkg/graph"
	"tripgraph/pkg/graph/observability"
	"tripgraph/pkg/review"
	"tripgraph/pkg/session"
)

// loadPrefs reconstructs the thread's preference map from the store:
// list keys, then fetch each. Values already set this turn win over
// stored ones. Store failures are fatal to the turn.
func (p *Planner) loadPrefs(ctx graph.Context, s session.State) (session.Update, error) {
	keys, err := p.store.ListKeys(ctx, s.ThreadID)
	if err != nil {
		return session.Update{}, fmt.Errorf("load preferences: %w", err)
	}

	merged := make(map[string]string, len(keys)+len(s.Preferences))
	for _, k := range keys {
		v, err := p.store.Get(ctx, s.ThreadID, k, "")
		if err != nil {
			return session.Update{}, fmt.Errorf("load preference %q: %w", k, err)
		}
		merged[k] = v
	}
	maps.Copy(merged, s.Preferences)

	return session.Update{Preferences: merged}, nil
}

// parsePrefs folds preference mentions from the latest user message
// into the map. Never fails.
func (p *Planner) parsePrefs(_ graph.Context, s session.State) (session.Update, error) {
	return session.Update{Preferences: ExtractPreferences(s.Preferences, s.Messages)}, nil
}

// injectPrefs appends one system directive carrying all known
// preferences. No preferences, no directive; a directive identical to
// the last injected one is not repeated on absorb cycles.
func (p *Planner) injectPrefs(_ graph.Context, s session.State) (session.Update, error) {
	directive := PreferenceDirective(s.Preferences)
	if directive == "" {
		return session.Update{}, nil
	}

	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == session.RoleSystem {
			if s.Messages[i].Content == directive {
				return session.Update{}, nil
			}
			break
		}
	}

	return session.Update{Messages: []session.Message{session.System(directive)}}, nil
}

// detectIntent classifies the latest user message and counts the pass
// so the absorb cycle stays finite.
func (p *Planner) detectIntent(_ graph.Context, s session.State) (session.Update, error) {
	return session.Update{
		WantsTool:    session.Bool(WantsTool(s.Messages)),
		IntentPasses: session.Int(s.IntentPasses + 1),
	}, nil
}

// reactAgent suspends into the tool-calling agent. Token deltas from
// the agent's final reply stream out through the run's event channel.
func (p *Planner) reactAgent(ctx graph.Context, s session.State) (session.Update, error) {
	out, err := p.agent.Invoke(ctx, s.Messages, agent.WithDelta(func(d string) {
		ctx.Emit(d)
	}))
	if err != nil {
		return session.Update{}, err
	}
	if len(out) < len(s.Messages) {
		return session.Update{}, fmt.Errorf("agent shortened history from %d to %d messages", len(s.Messages), len(out))
	}
	return session.Update{Messages: out[len(s.Messages):]}, nil
}

// freeformReview runs the free-form checkpoint over the draft reply.
func (p *Planner) freeformReview(ctx graph.Context, s session.State) (session.Update, error) {
	gate, _ := p.gates(ctx)
	if gate == nil {
		return session.Update{Approved: session.Bool(true)}, nil
	}
	if s.Revisions >= p.maxRevisions {
		ctx.Logger().Warn("revision bound reached, force-approving draft",
			"revisions", s.Revisions)
		observability.LogReviewDecision(ctx.Logger(), "freeform", "force_approve")
		return session.Update{Approved: session.Bool(true)}, nil
	}

	draft, _ := session.LastAssistantMessage(s.Messages)
	decision := gate.ReviewDraft(ctx, draft.Content)
	observability.LogReviewDecision(ctx.Logger(), "freeform", string(decision.Action))

	switch decision.Action {
	case review.Edit:
		update := session.Update{
			Approved:  session.Bool(false),
			Revisions: session.Int(s.Revisions + 1),
		}
		if decision.Feedback != "" {
			update.Messages = []session.Message{session.User(decision.Feedback)}
		}
		return update, nil
	case review.Reject:
		return session.Update{
			Approved:  session.Bool(false),
			Revisions: session.Int(s.Revisions + 1),
		}, nil
	default:
		return session.Update{Approved: session.Bool(true)}, nil
	}
}

// structuredReview runs the itinerary checkpoint. Gate transport
// failures are fatal; everything else resolves to approve or a
// bounded revision loop.
func (p *Planner) structuredReview(ctx graph.Context, s session.State) (session.Update, error) {
	_, gate := p.gates(ctx)
	if gate == nil {
		return session.Update{ApprovedStruct: session.Bool(true)}, nil
	}
	if s.Revisions >= p.maxRevisions {
		ctx.Logger().Warn("revision bound reached, force-approving summary",
			"revisions", s.Revisions)
		observability.LogReviewDecision(ctx.Logger(), "structured", "force_approve")
		return session.Update{ApprovedStruct: session.Bool(true)}, nil
	}

	decision, err := gate.ReviewSummary(ctx, s.Messages)
	if err != nil {
		return session.Update{}, err
	}
	observability.LogReviewDecision(ctx.Logger(), "structured", string(decision.Action))

	if decision.Action == review.Revise {
		update := session.Update{
			ApprovedStruct: session.Bool(false),
			Revisions:      session.Int(s.Revisions + 1),
		}
		if decision.Feedback != "" {
			update.Messages = []session.Message{session.User(decision.Feedback)}
		}
		return update, nil
	}
	return session.Update{ApprovedStruct: session.Bool(true)}, nil
}

// savePrefs flushes the preference map for the thread exactly once per
// turn, right before the terminal node.
func (p *Planner) savePrefs(ctx graph.Context, s session.State) (session.Update, error) {
	if s.Saved {
		return session.Update{}, nil
	}
	if len(s.Preferences) > 0 {
		if err := p.store.BatchPut(ctx, s.ThreadID, s.Preferences); err != nil {
			return session.Update{}, fmt.Errorf("persist preferences: %w", err)
		}
		observability.LogPreferencesPersisted(ctx.Logger(), s.ThreadID, len(s.Preferences))
	}
	return session.Update{Saved: session.Bool(true)}, nil
}
