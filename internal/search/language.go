// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var wordPattern = regexp.MustCompile(`\p{L}+`)

// englishMarkers are frequent function words and research vocabulary.
var englishMarkers = map[string]bool{
	"the": true, "and": true, "or": true, "a": true, "an": true, "is": true,
	"are": true, "was": true, "were": true, "of": true, "in": true, "to": true,
	"for": true, "with": true, "by": true, "this": true, "that": true,
	"these": true, "those": true, "we": true, "our": true, "study": true,
	"analysis": true, "method": true, "results": true, "conclusion": true,
	"research": true, "data": true, "using": true, "used": true, "based": true,
}

var (
	frenchMarkers = map[string]bool{
		"dans": true, "avec": true, "pour": true, "sur": true, "cette": true,
		"leur": true, "nous": true, "été": true, "être": true,
	}
	germanMarkers = map[string]bool{
		"der": true, "die": true, "das": true, "und": true, "oder": true,
		"mit": true, "für": true, "durch": true, "über": true,
	}
)

// IsLikelyEnglish guesses whether text is English from word frequencies.
// Text shorter than 20 characters or 10 words is assumed English. More
// than 5% French or German marker words means not English; otherwise more
// than 15% of the words must be common English words.
func IsLikelyEnglish(text string) bool {
	if utf8.RuneCountInString(text) < 20 {
		return true
	}
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) < 10 {
		return true
	}

	var english, french, german int
	for _, w := range words {
		switch {
		case englishMarkers[w]:
			english++
		case frenchMarkers[w]:
			french++
		case germanMarkers[w]:
			german++
		}
	}
	n := float64(len(words))
	if float64(french) > n*0.05 || float64(german) > n*0.05 {
		return false
	}
	return float64(english)/n > 0.15
}
