package review

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"tripgraph/pkg/agent"
	"tripgraph/pkg/session"
)

// Summary is the condensed itinerary presented at the structured gate.
type Summary struct {
	Hotels  []HotelSummary  `json:"hotels,omitempty"`
	Flights []FlightSummary `json:"flights,omitempty"`
	Tips    []string        `json:"tips,omitempty"`
}

// HotelSummary is one hotel line in the summary.
type HotelSummary struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
	Stars string `json:"stars,omitempty"`
}

// FlightSummary is one flight line in the summary.
type FlightSummary struct {
	Route string `json:"route"`
	Price string `json:"price,omitempty"`
	Stops int    `json:"stops,omitempty"`
}

const extractPrompt = `Condense the travel plan below into JSON with this shape and nothing else:
{"hotels":[{"name":"","price":"","stars":""}],"flights":[{"route":"","price":"","stops":0}],"tips":[""]}
Omit empty sections. Respond with JSON only.`

// StructuredGate reduces the draft plan to a Summary through a
// non-streaming model call, shows it to the operator, and reads one of
// approve or revise. When the extraction comes back as unparseable
// JSON the gate degrades to a binary ship/discard prompt over the raw
// draft instead of failing the turn.
type StructuredGate struct {
	completer agent.ChatCompleter
	model     string
	in        *bufio.Reader
	out       io.Writer
	logger    *slog.Logger
}

var _ SummaryReviewer = (*StructuredGate)(nil)

// NewStructuredGate creates a gate using the given completer for
// summary extraction.
func NewStructuredGate(completer agent.ChatCompleter, model string, in io.Reader, out io.Writer, logger *slog.Logger) *StructuredGate {
	if model == "" {
		model = agent.DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredGate{
		completer: completer,
		model:     model,
		in:        bufio.NewReader(in),
		out:       out,
		logger:    logger,
	}
}

// ReviewSummary extracts and presents the summary, then collects the
// operator's decision. The error is non-nil only when the model call
// itself fails; bad model output degrades instead.
func (g *StructuredGate) ReviewSummary(ctx context.Context, history []session.Message) (Decision, error) {
	draft, ok := session.LastAssistantMessage(history)
	if !ok {
		return Decision{Action: Approve}, nil
	}

	summary, err := g.extract(ctx, draft.Content)
	if err != nil {
		var ae *agent.AgentError
		if errors.As(err, &ae) {
			return Decision{}, &ReviewError{Gate: "structured", Err: err}
		}
		g.logger.Warn("summary extraction produced invalid JSON, degrading to ship/discard", "error", err)
		return g.binaryReview(ctx, draft.Content), nil
	}

	g.render(summary)
	fmt.Fprint(g.out, "summary [approve/revise]: ")

	line, err := g.readLine(ctx)
	if err != nil {
		g.logger.Warn("unreadable summary response, approving", "error", err)
		return Decision{Action: Approve}, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "approve", "a", "":
		return Decision{Action: Approve}, nil
	case "revise", "rev":
		fmt.Fprint(g.out, "feedback: ")
		feedback, err := g.readLine(ctx)
		if err != nil {
			g.logger.Warn("unreadable revise feedback, approving", "error", err)
			return Decision{Action: Approve}, nil
		}
		return Decision{Action: Revise, Feedback: strings.TrimSpace(feedback)}, nil
	default:
		g.logger.Warn("unrecognized summary response, approving", "response", line)
		return Decision{Action: Approve}, nil
	}
}

// binaryReview is the degraded path: ship keeps the draft, discard
// sends the turn back for another attempt.
func (g *StructuredGate) binaryReview(ctx context.Context, draft string) Decision {
	fmt.Fprintf(g.out, "\n--- plan (summary unavailable) ---\n%s\n----------------------------------\n", draft)
	fmt.Fprint(g.out, "review [ship/discard]: ")

	line, err := g.readLine(ctx)
	if err != nil {
		g.logger.Warn("unreadable ship/discard response, shipping", "error", err)
		return Decision{Action: Approve}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "discard", "d":
		return Decision{Action: Revise}
	default:
		return Decision{Action: Approve}
	}
}

func (g *StructuredGate) extract(ctx context.Context, draft string) (Summary, error) {
	resp, err := g.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractPrompt},
			{Role: openai.ChatMessageRoleUser, Content: draft},
		},
	})
	if err != nil {
		return Summary{}, &agent.AgentError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return Summary{}, fmt.Errorf("extraction returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var summary Summary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return Summary{}, fmt.Errorf("parse summary: %w", err)
	}
	return summary, nil
}

func (g *StructuredGate) render(s Summary) {
	fmt.Fprintln(g.out, "\n--- itinerary summary ---")
	for _, h := range s.Hotels {
		fmt.Fprintf(g.out, "hotel:  %s", h.Name)
		if h.Stars != "" {
			fmt.Fprintf(g.out, " (%s)", h.Stars)
		}
		if h.Price != "" {
			fmt.Fprintf(g.out, " %s", h.Price)
		}
		fmt.Fprintln(g.out)
	}
	for _, f := range s.Flights {
		fmt.Fprintf(g.out, "flight: %s", f.Route)
		if f.Price != "" {
			fmt.Fprintf(g.out, " %s", f.Price)
		}
		if f.Stops > 0 {
			fmt.Fprintf(g.out, " (%d stops)", f.Stops)
		}
		fmt.Fprintln(g.out)
	}
	for _, tip := range s.Tips {
		fmt.Fprintf(g.out, "tip:    %s\n", tip)
	}
	fmt.Fprintln(g.out, "-------------------------")
}

func (g *StructuredGate) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := g.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}
