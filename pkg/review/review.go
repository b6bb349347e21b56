// Package review implements the human checkpoints in a planning turn:
// a free-form gate over the draft reply and a structured gate over an
// extracted itinerary summary. Both read operator decisions line by
// line from an injected reader so tests can script them, and both
// degrade toward approval rather than aborting the turn.
package review

import (
	"context"
	"fmt"

	"tripgraph/pkg/session"
)

// Action is an operator decision at a gate.
type Action string

const (
	// Approve accepts the draft and lets the turn proceed.
	Approve Action = "approve"

	// Edit sends the draft back with operator feedback.
	Edit Action = "edit"

	// Reject sends the draft back without guidance.
	Reject Action = "reject"

	// Revise sends the summary back with operator feedback.
	Revise Action = "revise"
)

// Decision is the outcome of a gate. Feedback is set only for Edit and
// Revise.
type Decision struct {
	Action   Action
	Feedback string
}

// DraftReviewer checks the latest assistant draft before it reaches
// the structured gate.
type DraftReviewer interface {
	ReviewDraft(ctx context.Context, draft string) Decision
}

// SummaryReviewer checks the condensed itinerary before persistence.
type SummaryReviewer interface {
	ReviewSummary(ctx context.Context, history []session.Message) (Decision, error)
}

// AutoApprove passes both gates without operator input. It is the
// default when interactive review is disabled.
type AutoApprove struct{}

func (AutoApprove) ReviewDraft(context.Context, string) Decision {
	return Decision{Action: Approve}
}

func (AutoApprove) ReviewSummary(context.Context, []session.Message) (Decision, error) {
	return Decision{Action: Approve}, nil
}

// ReviewError wraps a gate failure.
type ReviewError struct {
	Gate string
	Err  error
}

func (e *ReviewError) Error() string {
	return fmt.Sprintf("review: %s gate: %v", e.Gate, e.Err)
}

func (e *ReviewError) Unwrap() error {
	return e.Err
}
