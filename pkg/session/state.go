// Package session defines the shared conversation state that flows through
// the planning graph, and the partial-update merge semantics nodes use to
// modify it.
package session

import "maps"

// State is the full session state for one graph invocation.
//
// ThreadID is an opaque identity and never changes within a session.
// Preferences are reloaded from the store at the start of every turn and
// flushed before the turn reaches the terminal node.
type State struct {
	ThreadID    string            `json:"thread_id"`
	Messages    []Message         `json:"messages"`
	Preferences map[string]string `json:"preferences"`

	// Transient per-turn flags.
	WantsTool      bool `json:"wants_tool"`
	Approved       bool `json:"approved"`
	ApprovedStruct bool `json:"approved_struct"`

	// Saved marks that preferences have been flushed this turn. It keeps
	// persistence idempotent when review gates loop back into the agent.
	Saved bool `json:"saved"`

	// Revisions counts review-gate loop-backs this turn.
	Revisions int `json:"revisions"`

	// IntentPasses counts intent classifications this turn. The
	// preference-absorb cycle routes through classification again, so
	// the router uses this to keep the cycle finite.
	IntentPasses int `json:"intent_passes"`
}

// New creates a fresh state for a thread with the given opening history.
func New(threadID string, messages []Message) State {
	return State{
		ThreadID:    threadID,
		Messages:    messages,
		Preferences: map[string]string{},
	}
}

// Clone returns a deep copy of the state. Routing functions receive
// snapshots, so nodes can rely on the copy they were handed.
func (s State) Clone() State {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Preferences = maps.Clone(s.Preferences)
	return out
}

// Update is a partial state change returned by a node.
//
// Merge policy: Messages are appended in engine-visit order. Preferences
// and flags are replaced wholesale when set — a node wanting accumulation
// must read-modify-write and return the full revised value.
type Update struct {
	Messages    []Message         `json:"messages,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`

	WantsTool      *bool `json:"wants_tool,omitempty"`
	Approved       *bool `json:"approved,omitempty"`
	ApprovedStruct *bool `json:"approved_struct,omitempty"`
	Saved          *bool `json:"saved,omitempty"`
	Revisions      *int  `json:"revisions,omitempty"`
	IntentPasses   *int  `json:"intent_passes,omitempty"`
}

// Bool is a convenience for flag fields in Update literals.
func Bool(v bool) *bool { return &v }

// Int is a convenience for counter fields in Update literals.
func Int(v int) *int { return &v }

// Reduce merges a partial update into the state. It is the reducer the
// graph engine applies after every node.
func Reduce(s State, u Update) State {
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	if u.Preferences != nil {
		s.Preferences = u.Preferences
	}
	if u.WantsTool != nil {
		s.WantsTool = *u.WantsTool
	}
	if u.Approved != nil {
		s.Approved = *u.Approved
	}
	if u.ApprovedStruct != nil {
		s.ApprovedStruct = *u.ApprovedStruct
	}
	if u.Saved != nil {
		s.Saved = *u.Saved
	}
	if u.Revisions != nil {
		s.Revisions = *u.Revisions
	}
	if u.IntentPasses != nil {
		s.IntentPasses = *u.IntentPasses
	}
	return s
}
