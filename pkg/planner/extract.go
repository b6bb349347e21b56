package planner

import (
	"maps"
	"regexp"
	"strings"

	"tripgraph/pkg/session"
)

// Preference keys the extractor knows about.
const (
	PrefHotelClass = "hotel_class"
	PrefBudget     = "budget"
)

var (
	hotelClassRe = regexp.MustCompile(`(?i)(\d)[-\s]?star`)

	// Budget alternatives in priority order; the first match wins.
	budgetWordRe  = regexp.MustCompile(`(?i)budget[:=\s]*\$?\s?([\d,]+)`)
	budgetSymRe   = regexp.MustCompile(`[$€£]\s?([\d,]+)`)
	budgetBoundRe = regexp.MustCompile(`(?i)(?:under|less than|up to)\s+\$?\s?([\d,]+)`)
)

// ExtractPreferences scans the most recent user message for preference
// mentions and folds them into the given map. With no user message the
// input map comes back unchanged. The result is always the full revised
// map: matched keys overwrite, unmatched keys survive. It never fails.
func ExtractPreferences(prefs map[string]string, history []session.Message) map[string]string {
	out := maps.Clone(prefs)
	if out == nil {
		out = map[string]string{}
	}

	msg, ok := session.LastUserMessage(history)
	if !ok {
		return out
	}

	if m := hotelClassRe.FindStringSubmatch(msg.Content); m != nil {
		out[PrefHotelClass] = m[1] + "-star"
	}

	for _, re := range []*regexp.Regexp{budgetWordRe, budgetSymRe, budgetBoundRe} {
		if m := re.FindStringSubmatch(msg.Content); m != nil {
			out[PrefBudget] = strings.ReplaceAll(m[1], ",", "")
			break
		}
	}

	return out
}
