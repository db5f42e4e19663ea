package judge

import "github.com/poiesic/memstream/core"

// Lexicon holds the keyword lists driving classification. It is an
// immutable value: build one with DefaultLexicon or construct your own,
// then inject it at daemon startup. Never mutate a shared Lexicon.
type Lexicon struct {
	// Sentiment matches short expressions of gratitude, praise, or
	// excitement.
	Sentiment []string

	// Acknowledgment matches short agreement or confirmation.
	Acknowledgment []string

	// Categories maps each long-form category to its keywords.
	Categories map[core.Category][]string
}

// categoryPrecedence is the classification order for long messages.
// The first category with a keyword match wins; outcome is the default.
var categoryPrecedence = []core.Category{
	core.CategoryDecision,
	core.CategoryDiscovery,
	core.CategoryImplementation,
	core.CategoryIssue,
	core.CategorySuccess,
	core.CategoryFeeling,
	core.CategoryPhilosophy,
}

// baseImportance is the per-category starting score before length
// adjustments. These are tuned defaults, not derived values.
var baseImportance = map[core.Category]int{
	core.CategoryDecision:       8,
	core.CategoryDiscovery:      7,
	core.CategoryImplementation: 7,
	core.CategoryIssue:          8,
	core.CategorySuccess:        7,
	core.CategoryFeeling:        6,
	core.CategoryPhilosophy:     7,
	core.CategoryOutcome:        5,
}

const (
	sentimentImportance      = 6
	acknowledgmentImportance = 5
)

// DefaultLexicon returns the standard keyword lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Sentiment: []string{
			"thank you",
			"amazing",
			"wonderful",
			"awesome",
			"brilliant",
			"love it",
			"love this",
			"fantastic",
			"incredible",
			"grateful",
		},
		Acknowledgment: []string{
			"ok",
			"okay",
			"sure",
			"yes",
			"yep",
			"agreed",
			"got it",
			"sounds good",
			"makes sense",
			"will do",
			"understood",
		},
		Categories: map[core.Category][]string{
			core.CategoryDecision: {
				"decided", "decision", "determined", "choose", "chose",
				"selected", "committed", "going with",
			},
			core.CategoryDiscovery: {
				"discovered", "found", "realized", "learned", "insight",
				"identified", "turns out",
			},
			core.CategoryImplementation: {
				"implemented", "built", "created", "fixed", "wrote",
				"refactored", "wired",
			},
			core.CategoryIssue: {
				"issue", "problem", "bug", "error", "blocker", "blocked",
				"broken", "failing",
			},
			core.CategorySuccess: {
				"success", "succeeded", "working", "resolved", "achieved",
				"completed", "passing",
			},
			core.CategoryFeeling: {
				"feel", "feeling", "felt", "excited", "worried",
				"frustrated", "relieved", "proud",
			},
			core.CategoryPhilosophy: {
				"believe", "philosophy", "principle", "value", "matters",
				"meaning", "purpose",
			},
		},
	}
}
