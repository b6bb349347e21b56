package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"

	"tripgraph/pkg/session"
	"tripgraph/pkg/tools"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxSteps bounds the reason/act loop per invocation.
	DefaultMaxSteps = 6

	// exhaustedReply is the degradation answer when the step budget
	// runs out and the model cannot be coaxed into a final message.
	exhaustedReply = "I wasn't able to finish researching that request. Please try narrowing it down."
)

// ChatCompleter is the slice of the OpenAI client the agent needs.
// *openai.Client satisfies it; tests substitute fakes.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI runs a bounded reason/act loop against a chat completion
// model with the catalog's tools bound as functions. Tool failures are
// fed back to the model as error-content results rather than aborting
// the turn.
type OpenAI struct {
	completer   ChatCompleter
	catalog     *tools.Catalog
	model       string
	maxSteps    int
	temperature float32
	logger      *slog.Logger
}

var _ Agent = (*OpenAI)(nil)

// Option configures an OpenAI agent.
type Option func(*OpenAI)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(a *OpenAI) {
		a.model = model
	}
}

// WithMaxSteps bounds the reason/act loop.
func WithMaxSteps(n int) Option {
	return func(a *OpenAI) {
		a.maxSteps = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(a *OpenAI) {
		a.temperature = t
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *OpenAI) {
		a.logger = logger
	}
}

// NewOpenAI creates an agent over the given completer and tool catalog.
// A nil catalog disables tool calling.
func NewOpenAI(completer ChatCompleter, catalog *tools.Catalog, opts ...Option) *OpenAI {
	a := &OpenAI{
		completer: completer,
		catalog:   catalog,
		model:     DefaultModel,
		maxSteps:  DefaultMaxSteps,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Invoke runs the reason/act loop until the model produces a plain
// assistant reply or the step budget runs out.
func (a *OpenAI) Invoke(ctx context.Context, history []session.Message, opts ...InvokeOption) ([]session.Message, error) {
	cfg := ResolveInvokeOptions(opts...)

	out := slices.Clone(history)
	defs := a.toolDefs()

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.model,
			Messages:    toOpenAIMessages(out),
			Tools:       defs,
			Temperature: a.temperature,
		})
		if err != nil {
			return nil, &AgentError{Step: step, Err: err}
		}
		if len(resp.Choices) == 0 {
			return nil, &AgentError{Step: step, Err: errNoChoices}
		}

		assistant := fromOpenAIMessage(resp.Choices[0].Message)
		out = append(out, assistant)

		if len(assistant.ToolCalls) == 0 {
			emitDeltas(cfg.Delta, assistant.Content)
			return out, nil
		}

		for _, call := range assistant.ToolCalls {
			out = append(out, a.dispatch(ctx, call))
		}
	}

	a.logger.Warn("agent step budget exhausted, forcing final answer",
		"max_steps", a.maxSteps)
	final := a.forceFinal(ctx, out)
	out = append(out, final)
	emitDeltas(cfg.Delta, final.Content)
	return out, nil
}

// dispatch runs a single tool call. Failures become error-content
// results so the model can recover.
func (a *OpenAI) dispatch(ctx context.Context, call session.ToolCall) session.Message {
	var tool tools.Tool
	ok := false
	if a.catalog != nil {
		tool, ok = a.catalog.Get(call.Name)
	}
	if !ok {
		a.logger.Warn("model requested unknown tool", "tool", call.Name)
		return session.ToolResult(call.ID, call.Name, "error: unknown tool "+call.Name)
	}

	result, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return session.ToolResult(call.ID, call.Name, "error: "+err.Error())
	}
	return session.ToolResult(call.ID, call.Name, result)
}

// forceFinal asks for an answer with tools disabled after the step
// budget is spent. Any failure falls back to a canned reply so the
// history still ends in an assistant message.
func (a *OpenAI) forceFinal(ctx context.Context, history []session.Message) session.Message {
	resp, err := a.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    toOpenAIMessages(history),
		Temperature: a.temperature,
		ToolChoice:  "none",
	})
	if err != nil || len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) > 0 {
		return session.Assistant(exhaustedReply)
	}
	return fromOpenAIMessage(resp.Choices[0].Message)
}

func (a *OpenAI) toolDefs() []openai.Tool {
	if a.catalog == nil || a.catalog.Len() == 0 {
		return nil
	}
	defs := make([]openai.Tool, 0, a.catalog.Len())
	for _, t := range a.catalog.List() {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return defs
}

// emitDeltas chunks content at word boundaries. The completion API is
// used non-streaming, so chunks arrive after the reply is complete.
func emitDeltas(delta DeltaFunc, content string) {
	if delta == nil || content == "" {
		return
	}
	for _, chunk := range strings.SplitAfter(content, " ") {
		if chunk != "" {
			delta(chunk)
		}
	}
}

func toOpenAIMessages(history []session.Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) session.Message {
	out := session.Message{
		Role:    session.Role(m.Role),
		Content: m.Content,
	}
	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return out
}
