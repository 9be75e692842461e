// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/url"
	"regexp"
	"strings"
)

// doiPattern matches a bare DOI: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// doiInText finds DOIs embedded in free text or URLs.
var doiInText = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>&?#]+`)

// biorxivContentPattern extracts the DOI (with optional version) from a
// bioRxiv content URL.
var biorxivContentPattern = regexp.MustCompile(`/content/(10\.1101/\d{4}\.\d{2}\.\d{2}\.\d+(?:v\d+)?)`)

// natureArticlePattern maps nature.com article slugs to their DOI suffix.
var natureArticlePattern = regexp.MustCompile(`nature\.com/articles/([A-Za-z0-9._-]+)`)

// versionSuffix matches the bioRxiv version suffix "v2".
var versionSuffix = regexp.MustCompile(`v(\d+)$`)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver prefixes, whitespace, and trailing
// punctuation. Case is preserved; comparisons use DedupeKey.
func NormalizeDOI(raw string) string {
	doi := strings.TrimSpace(raw)
	for {
		stripped := false
		for _, p := range doiPrefixes {
			if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
				doi = strings.TrimSpace(doi[len(p):])
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return strings.TrimRight(doi, ".,;)")
}

// IsDOI reports whether s, after normalization, looks like a DOI.
func IsDOI(s string) bool {
	return doiPattern.MatchString(NormalizeDOI(s))
}

// IsBioRxivDOI reports whether doi belongs to the bioRxiv prefix.
func IsBioRxivDOI(doi string) bool {
	return strings.HasPrefix(NormalizeDOI(doi), "10.1101/")
}

// splitVersion separates "10.1101/2024.01.01.1v3" into the versionless DOI
// and "3". The version is "" when absent.
func splitVersion(doi string) (string, string) {
	m := versionSuffix.FindStringSubmatchIndex(doi)
	if m == nil {
		return doi, ""
	}
	return doi[:m[0]], doi[m[2]:m[3]]
}

// DOIFromURL extracts a DOI from a publisher or resolver URL. It returns
// "" when none can be found.
func DOIFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}

	lower := strings.ToLower(raw)
	for _, host := range []string{"doi.org/", "dx.doi.org/"} {
		if i := strings.Index(lower, host); i >= 0 {
			if doi := cleanURLDOI(raw[i+len(host):]); IsDOI(doi) {
				return doi
			}
		}
	}

	if m := biorxivContentPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := natureArticlePattern.FindStringSubmatch(raw); m != nil && !strings.HasPrefix(m[1], "10.") {
		return "10.1038/" + m[1]
	}
	if m := doiInText.FindString(raw); m != "" {
		return cleanURLDOI(m)
	}
	return ""
}

// cleanURLDOI trims file extensions, page suffixes, and slashes that
// publishers append after the DOI.
func cleanURLDOI(s string) string {
	if i := strings.IndexAny(s, "?#&"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	for _, suffix := range []string{".html", ".pdf", ".full", ".abstract", "/full", "/abstract", "/pdf"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return NormalizeDOI(s)
}

// FindDOIs returns the distinct DOIs in text, in order of appearance.
func FindDOIs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range doiInText.FindAllString(text, -1) {
		doi := NormalizeDOI(m)
		key := strings.ToLower(doi)
		if !IsDOI(doi) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, doi)
	}
	return out
}

var urlSeparators = regexp.MustCompile(`[-_/]+`)

// TitleFromURL guesses a search phrase from a URL path, for pages that
// expose no DOI.
func TitleFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(strings.TrimSuffix(u.Path, ".html"), ".htm")
	if strings.Trim(path, "/") == "" {
		path = u.Host
	}
	guess := strings.Join(strings.Fields(urlSeparators.ReplaceAllString(path, " ")), " ")
	return clip(guess, 120)
}
