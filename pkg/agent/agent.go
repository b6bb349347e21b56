// Package agent defines the tool-calling agent boundary the planner
// suspends into when a turn needs live research, plus the OpenAI
// implementation of it.
package agent

import (
	"context"
	"errors"
	"fmt"

	"tripgraph/pkg/session"
)

// errNoChoices reports an empty completion response.
var errNoChoices = errors.New("model returned no choices")

// Agent researches a request by extending the conversation history.
// The returned slice always starts with the input history unchanged and
// always ends in an assistant message, even when the agent could not
// finish its work.
type Agent interface {
	Invoke(ctx context.Context, history []session.Message, opts ...InvokeOption) ([]session.Message, error)
}

// DeltaFunc receives incremental chunks of the agent's final reply as
// they become available.
type DeltaFunc func(delta string)

// AgentError wraps a failure from the underlying model call.
type AgentError struct {
	Step int
	Err  error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent: step %d: %v", e.Step, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// InvokeOptions carries per-invocation settings. It is exported so
// Agent implementations outside this package can resolve options.
type InvokeOptions struct {
	Delta DeltaFunc
}

// InvokeOption configures a single Invoke call.
type InvokeOption func(*InvokeOptions)

// ResolveInvokeOptions folds options into a settings struct.
func ResolveInvokeOptions(opts ...InvokeOption) InvokeOptions {
	var cfg InvokeOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithDelta streams chunks of the final assistant reply to fn.
func WithDelta(fn DeltaFunc) InvokeOption {
	return func(c *InvokeOptions) {
		c.Delta = fn
	}
}
