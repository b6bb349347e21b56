package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// FreeformGate shows the draft reply to an operator and reads one of
// approve, edit, or reject. An unreadable or unrecognized response
// approves the draft; review must never strand a turn.
type FreeformGate struct {
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

var _ DraftReviewer = (*FreeformGate)(nil)

// NewFreeformGate creates a gate over the given operator streams.
func NewFreeformGate(in io.Reader, out io.Writer, logger *slog.Logger) *FreeformGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &FreeformGate{in: bufio.NewReader(in), out: out, logger: logger}
}

// ReviewDraft presents the draft and collects the operator's decision.
func (g *FreeformGate) ReviewDraft(ctx context.Context, draft string) Decision {
	fmt.Fprintf(g.out, "\n--- draft reply ---\n%s\n-------------------\n", draft)
	fmt.Fprint(g.out, "review [approve/edit/reject]: ")

	line, err := g.readLine(ctx)
	if err != nil {
		g.logger.Warn("unreadable review response, approving draft", "error", err)
		return Decision{Action: Approve}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "approve", "a", "":
		return Decision{Action: Approve}
	case "reject", "r":
		return Decision{Action: Reject}
	case "edit", "e":
		fmt.Fprint(g.out, "feedback: ")
		feedback, err := g.readLine(ctx)
		if err != nil {
			g.logger.Warn("unreadable edit feedback, approving draft", "error", err)
			return Decision{Action: Approve}
		}
		return Decision{Action: Edit, Feedback: strings.TrimSpace(feedback)}
	default:
		g.logger.Warn("unrecognized review response, approving draft", "response", line)
		return Decision{Action: Approve}
	}
}

func (g *FreeformGate) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := g.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}
