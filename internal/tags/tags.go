// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tags canonicalizes classification tags and reconciles them
// against the vocabulary already present in a reference store.
package tags

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
)

// Classification prefixes whose first colon is rewritten to a hyphen.
var prefixes = []string{"aRT", "aTa", "aTy", "aMe"}

// Default similarity thresholds.
const (
	DefaultSuggest = 0.70
	DefaultReplace = 0.85
)

// Normalize rewrites "aRT:protein folding" to "aRT-protein folding" for
// the classification prefixes and drops blank entries. Other tags pass
// through unchanged. Order is preserved.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if hasPrefix(t) {
			t = strings.Replace(t, ":", "-", 1)
		}
		out = append(out, t)
	}
	return out
}

func hasPrefix(t string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// ScorePrefix starts every score tag.
const ScorePrefix = "ai score-"

// ScoreTag returns the tag that records a relevance score.
func ScoreTag(score int) string {
	return fmt.Sprintf("%s%d", ScorePrefix, score)
}

// EnsureScoreTag appends the score tag unless tags already contain it.
func EnsureScoreTag(tags []string, score int) []string {
	want := ScoreTag(score)
	for _, t := range tags {
		if t == want {
			return tags
		}
	}
	return append(tags, want)
}

// Similarity is the normalized edit-distance ratio of a and b compared
// case-insensitively: 1 for identical strings, 0 for nothing in common.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Vocabulary supplies the tags that already exist in a store.
type Vocabulary interface {
	Tags(ctx context.Context) ([]string, error)
}

// VocabularyFunc adapts a function to Vocabulary.
type VocabularyFunc func(ctx context.Context) ([]string, error)

// Tags calls f.
func (f VocabularyFunc) Tags(ctx context.Context) ([]string, error) { return f(ctx) }

// Suggestion reports a proposed tag that resembles an existing one.
type Suggestion struct {
	Proposed   string  `json:"proposed"`
	Existing   string  `json:"existing"`
	Similarity float64 `json:"similarity"`

	// Replaced is true when Existing was used in place of Proposed.
	Replaced bool `json:"replaced"`
}

func (s Suggestion) String() string {
	if s.Replaced {
		return fmt.Sprintf("replaced %q with existing %q (similarity %.2f)", s.Proposed, s.Existing, s.Similarity)
	}
	return fmt.Sprintf("consider existing %q instead of %q (similarity %.2f)", s.Existing, s.Proposed, s.Similarity)
}

// Reconciler maps proposed tags onto a store vocabulary.
type Reconciler struct {
	// Suggest is the lowest similarity that produces a suggestion.
	Suggest float64

	// Replace is the lowest similarity at which the existing tag is
	// substituted for the proposed one.
	Replace float64

	Logger zerolog.Logger
}

// NewReconciler returns a Reconciler with the given thresholds. Zero
// values select the defaults.
func NewReconciler(suggest, replace float64, logger zerolog.Logger) Reconciler {
	if suggest <= 0 {
		suggest = DefaultSuggest
	}
	if replace <= 0 {
		replace = DefaultReplace
	}
	return Reconciler{Suggest: suggest, Replace: replace, Logger: logger}
}

// Reconcile compares each proposed tag with the vocabulary. Exact matches
// are kept. Otherwise the most similar existing tag decides: at or above
// Replace it is substituted, at or above Suggest the proposed tag is kept
// and a suggestion is emitted. The result has no repeated tags.
//
// When the vocabulary cannot be fetched or is empty, proposed is returned
// unchanged with no suggestions.
func (r Reconciler) Reconcile(ctx context.Context, proposed []string, vocab Vocabulary) ([]string, []Suggestion) {
	if vocab == nil || len(proposed) == 0 {
		return proposed, nil
	}
	existing, err := vocab.Tags(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not fetch existing tags, keeping proposed tags")
		return proposed, nil
	}
	if len(existing) == 0 {
		return proposed, nil
	}

	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e] = true
	}

	var out []string
	var suggestions []Suggestion
	seen := make(map[string]bool, len(proposed))
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	for _, tag := range proposed {
		if known[tag] {
			add(tag)
			continue
		}
		best, score := r.closest(tag, existing)
		switch {
		case best != "" && score >= r.Replace:
			add(best)
			suggestions = append(suggestions, Suggestion{Proposed: tag, Existing: best, Similarity: score, Replaced: true})
		case best != "" && score >= r.Suggest:
			add(tag)
			suggestions = append(suggestions, Suggestion{Proposed: tag, Existing: best, Similarity: score})
		default:
			add(tag)
		}
	}
	return out, suggestions
}

// closest returns the most similar existing tag. Ties keep the first.
func (r Reconciler) closest(tag string, existing []string) (string, float64) {
	best, bestScore := "", -1.0
	for _, e := range existing {
		if s := Similarity(tag, e); s > bestScore {
			best, bestScore = e, s
		}
	}
	return best, bestScore
}
