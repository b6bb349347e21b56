package guide

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tripgraph/pkg/tools"
)

var tipParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "destination or topic to look up tips for"},
		"count": {"type": "integer", "description": "how many tips to return"}
	},
	"required": ["query"]
}`)

// Tool exposes the index as the travel_guide agent tool.
func Tool(ix *Index) tools.Tool {
	return tools.Tool{
		Name:        "travel_guide",
		Description: "Look up local travel tips and guide passages for a destination.",
		Parameters:  tipParams,
		Call: func(ctx context.Context, args json.RawMessage) (string, error) {
			var q struct {
				Query string `json:"query"`
				Count int    `json:"count"`
			}
			if err := json.Unmarshal(args, &q); err != nil {
				return "", fmt.Errorf("travel_guide: bad arguments: %w", err)
			}
			tips, err := ix.RetrieveTips(ctx, q.Query, q.Count)
			if err != nil {
				return "", err
			}
			if len(tips) == 0 {
				return "no guide entries found for " + strings.TrimSpace(q.Query), nil
			}
			b, err := json.Marshal(tips)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
