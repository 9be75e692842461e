// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/literature-scout/internal/search"
)

var (
	titleNoise    = regexp.MustCompile(`(?i)(doi:|arxiv:|author|email)`)
	contentNoise  = regexp.MustCompile(`(?i)(author|email|affiliation|doi:|arxiv:|©)`)
	abstractHead  = regexp.MustCompile(`(?i)^abstract\s*[:.]?$`)
	abstractEnd   = regexp.MustCompile(`^(introduction|background|keywords|significance|author|1\.|i\.)`)
	significance  = regexp.MustCompile(`(?i)^(significance|impact)\s*(statement)?\s*[:.]?$`)
	introHead     = regexp.MustCompile(`(?i)^(introduction|background|1\.\s*introduction)$`)
	shortBoundary = []string{"author", "keyword", "introduction"}
)

// fallbackChars bounds the raw text returned when no section is found.
const fallbackChars = 1000

// Sections picks the parts of extracted PDF text worth showing the oracle:
// a title line, the abstract, a significance statement, and the start of
// the introduction, each labeled. Sections that do not read as English are
// left out. When no heading is recognized the first substantial paragraph
// is used, and failing that the first 1000 characters.
func Sections(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	var parts []string
	for _, l := range lines[:min(10, len(lines))] {
		if n := utf8.RuneCountInString(l); n > 20 && n < 200 && !titleNoise.MatchString(l) {
			parts = append(parts, "TITLE: "+l)
			break
		}
	}

	if body := abstract(lines); len(body) > 100 && search.IsLikelyEnglish(body) {
		parts = append(parts, "ABSTRACT: "+body)
	}

	for i, l := range lines {
		if !significance.MatchString(l) {
			continue
		}
		body := strings.Join(lines[i+1:min(i+11, len(lines))], " ")
		if len(body) > 50 && search.IsLikelyEnglish(body) {
			parts = append(parts, "SIGNIFICANCE: "+body)
		}
		break
	}

	for i, l := range lines {
		if !introHead.MatchString(l) {
			continue
		}
		body := joinLonger(lines[i+1:min(i+16, len(lines))], 10)
		if len(body) > 100 && search.IsLikelyEnglish(body) {
			parts = append(parts, "INTRODUCTION: "+clip(body, 500)+"...")
		}
		break
	}

	// A title alone is not enough context.
	if len(parts) <= 1 {
		if content := firstContent(lines); content != "" {
			parts = append(parts, content)
		}
	}
	if len(parts) == 0 {
		return clip(text, fallbackChars)
	}
	return strings.Join(parts, "\n\n")
}

// abstract returns the lines after a standalone "Abstract" heading, up to
// the next section heading or 25 lines.
func abstract(lines []string) string {
	for i, l := range lines {
		if !abstractHead.MatchString(l) {
			continue
		}
		start, end := i+1, min(i+26, len(lines))
		for j := start; j < min(i+40, len(lines)); j++ {
			next := strings.ToLower(lines[j])
			if abstractEnd.MatchString(next) || (len(next) < 10 && containsAny(next, shortBoundary)) {
				end = j
				break
			}
		}
		return joinLonger(lines[start:end], 10)
	}
	return ""
}

// firstContent returns the first paragraph of body text, skipping the
// title block and author lines.
func firstContent(lines []string) string {
	start := 0
	for i, l := range lines[:min(20, len(lines))] {
		if len(l) > 50 && !contentNoise.MatchString(l) {
			start = i
			break
		}
	}
	body := joinLonger(lines[start:min(start+20, len(lines))], 15)
	if len(body) <= 100 {
		return ""
	}
	label := "CONTENT: "
	if !search.IsLikelyEnglish(body) {
		label = "CONTENT (may be multilingual): "
	}
	return label + clip(body, 800) + "..."
}

// joinLonger joins the lines longer than n bytes with spaces.
func joinLonger(lines []string, n int) string {
	var keep []string
	for _, l := range lines {
		if len(l) > n {
			keep = append(keep, l)
		}
	}
	return strings.TrimSpace(strings.Join(keep, " "))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
