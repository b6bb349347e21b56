package planner

import (
	"fmt"
	"sort"
	"strings"
)

// PreferenceDirective renders the known preferences as one system
// message instructing the model to honor them. An empty map yields an
// empty string; callers must not inject an empty directive.
func PreferenceDirective(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(prefs))
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := prefs[k]
		switch k {
		case PrefHotelClass:
			parts = append(parts, fmt.Sprintf("prefer %s hotels", v))
		case PrefBudget:
			parts = append(parts, fmt.Sprintf("budget <= $%s", v))
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		}
	}

	return "The traveler has saved preferences: " + strings.Join(parts, "; ") +
		". Honor them unless the user explicitly overrides them."
}
