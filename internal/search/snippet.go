// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	doiOnlyPattern   = regexp.MustCompile(`(?i)^(?:doi:\s*)?10\.\d{4,9}/\S+$`)
	doiLeaderPattern = regexp.MustCompile(`(?i)^doi:\s*10\.\d{4,9}/\S+\s*`)
)

// StripMarkup removes HTML or JATS tags and collapses whitespace.
func StripMarkup(s string) string {
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	} else {
		s = html.UnescapeString(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// CleanSnippet prepares an abstract or summary line for display: markup is
// stripped, whitespace collapsed, a bare DOI discarded, and a leading
// "doi: 10.x/..." marker removed.
func CleanSnippet(s string) string {
	s = StripMarkup(s)
	if doiOnlyPattern.MatchString(s) {
		return ""
	}
	return strings.TrimSpace(doiLeaderPattern.ReplaceAllString(s, ""))
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
