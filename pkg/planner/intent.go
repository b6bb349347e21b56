package planner

import (
	"strings"

	"tripgraph/pkg/session"
)

// Closed vocabularies for intent classification. A turn wants a tool
// only when an action verb and a travel domain term both appear.
var (
	actionVerbs = []string{"find", "show", "search", "book", "recommend", "get"}

	domainTerms = []string{
		"hotel", "stay", "accommodation",
		"flight", "fly", "depart", "arrive",
		"guide",
	}
)

// WantsTool classifies the most recent user message. It never fails
// and never touches history; no user message means no tool.
func WantsTool(history []session.Message) bool {
	msg, ok := session.LastUserMessage(history)
	if !ok {
		return false
	}
	text := strings.ToLower(msg.Content)

	return containsAny(text, actionVerbs) && containsAny(text, domainTerms)
}

func containsAny(text string, vocab []string) bool {
	for _, term := range vocab {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
