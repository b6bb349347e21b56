package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tripgraph/pkg/session"
)

func userTurn(content string) []session.Message {
	return []session.Message{session.User(content)}
}

// TestExtractPreferences_Budget covers the priority-ordered budget
// alternatives.
func TestExtractPreferences_Budget(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"bound phrase", "somewhere under $1500 please", "1500"},
		{"budget keyword", "budget: 1500", "1500"},
		{"currency symbol", "$1,500 budget for the week", "1500"},
		{"budget equals", "budget=2000", "2000"},
		{"less than", "less than 800 total", "800"},
		{"up to", "up to $3,000", "3000"},
		{"first amount wins", "my budget is $2000 but I saw a $50 tour", "2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPreferences(nil, userTurn(tt.message))
			assert.Equal(t, tt.want, got[PrefBudget])
		})
	}
}

// TestExtractPreferences_HotelClass covers star-rating spellings.
func TestExtractPreferences_HotelClass(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"hyphenated", "I prefer 4-star hotels", "4-star"},
		{"spaced", "a 4 star place would be nice", "4-star"},
		{"attached", "5star all the way", "5-star"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPreferences(nil, userTurn(tt.message))
			assert.Equal(t, tt.want, got[PrefHotelClass])
		})
	}
}

// TestExtractPreferences_Idempotent verifies a message without
// preference mentions leaves the map unchanged.
func TestExtractPreferences_Idempotent(t *testing.T) {
	prefs := map[string]string{PrefHotelClass: "4-star", PrefBudget: "2000"}

	got := ExtractPreferences(prefs, userTurn("what's the weather in Rome?"))

	assert.Equal(t, prefs, got)
}

// TestExtractPreferences_Accumulates verifies matched keys overwrite
// and unmatched keys survive.
func TestExtractPreferences_Accumulates(t *testing.T) {
	prefs := map[string]string{PrefHotelClass: "3-star"}

	got := ExtractPreferences(prefs, userTurn("actually make it 5-star"))

	assert.Equal(t, "5-star", got[PrefHotelClass])

	got = ExtractPreferences(got, userTurn("budget: 2500"))
	assert.Equal(t, "5-star", got[PrefHotelClass])
	assert.Equal(t, "2500", got[PrefBudget])
}

// TestExtractPreferences_ScansOnlyLastUserMessage verifies other roles
// and earlier user turns are ignored.
func TestExtractPreferences_ScansOnlyLastUserMessage(t *testing.T) {
	history := []session.Message{
		session.User("budget: 9999"),
		session.Assistant("Noted, a 2-star budget of $9999."),
		session.User("make that budget: 1500"),
	}

	got := ExtractPreferences(nil, history)

	assert.Equal(t, "1500", got[PrefBudget])
	assert.NotContains(t, got, PrefHotelClass)
}

// TestExtractPreferences_NoUserMessage verifies the no-op path.
func TestExtractPreferences_NoUserMessage(t *testing.T) {
	got := ExtractPreferences(map[string]string{PrefBudget: "100"},
		[]session.Message{session.Assistant("hello")})

	assert.Equal(t, map[string]string{PrefBudget: "100"}, got)
}

// TestExtractPreferences_DoesNotMutateInput verifies the input map is
// copied, not written through.
func TestExtractPreferences_DoesNotMutateInput(t *testing.T) {
	prefs := map[string]string{PrefBudget: "100"}

	_ = ExtractPreferences(prefs, userTurn("budget: 500"))

	assert.Equal(t, "100", prefs[PrefBudget])
}
