// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package judge

import (
	"strings"
	"unicode"

	"github.com/poiesic/memstream/core"
)

// Verdict is the result of classifying a single message.
type Verdict struct {
	Category   core.Category
	Importance int
}

// Classifier decides whether a message matters and how much.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Classify returns a verdict for the message text, or ok=false if
	// the message should be discarded without a verdict.
	Classify(text string) (verdict Verdict, ok bool)
}

// LexiconClassifier classifies messages by keyword matching.
//
// Messages shorter than the short-message length are only kept if they
// express sentiment or acknowledgment. Longer messages are classified by
// category precedence, scored from a per-category base, and adjusted by
// length: verbose messages gain, terse ones lose.
type LexiconClassifier struct {
	lexicon  Lexicon
	shortLen int
}

var _ Classifier = (*LexiconClassifier)(nil)

// NewLexiconClassifier creates a classifier over the given lexicon.
// shortLen is the boundary between the short-message and long-message
// paths.
func NewLexiconClassifier(lexicon Lexicon, shortLen int) *LexiconClassifier {
	return &LexiconClassifier{lexicon: lexicon, shortLen: shortLen}
}

// Classify implements Classifier.
func (c *LexiconClassifier) Classify(text string) (Verdict, bool) {
	lower := strings.ToLower(text)
	words := tokenize(lower)

	if len(text) < c.shortLen {
		if matchesAny(lower, words, c.lexicon.Sentiment) {
			return Verdict{Category: core.CategorySentiment, Importance: sentimentImportance}, true
		}
		if matchesAny(lower, words, c.lexicon.Acknowledgment) {
			return Verdict{Category: core.CategoryAcknowledgment, Importance: acknowledgmentImportance}, true
		}
		return Verdict{}, false
	}

	category := core.CategoryOutcome
	for _, candidate := range categoryPrecedence {
		if matchesAny(lower, words, c.lexicon.Categories[candidate]) {
			category = candidate
			break
		}
	}

	score := baseImportance[category]
	switch {
	case len(text) > 500:
		score += 2
	case len(text) > 200:
		score++
	}
	if len(text) < 100 {
		score--
	}

	return Verdict{Category: category, Importance: core.ClampImportance(score)}, true
}

// tokenize splits lowered text into word tokens.
func tokenize(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// matchesAny reports whether any keyword appears in the text. Multi-word
// keywords match as substrings; single words must match a whole token, so
// "ok" never matches inside "look".
func matchesAny(lower string, words map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		if _, found := words[kw]; found {
			return true
		}
	}
	return false
}
