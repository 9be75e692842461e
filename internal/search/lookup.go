// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// ErrNoIdentifier is returned when input contains neither a DOI nor
// anything a title search could use.
var ErrNoIdentifier = errors.New("no DOI or title found")

// TitleFinder returns the best match for a title-like phrase.
type TitleFinder interface {
	FindByTitle(ctx context.Context, title string) (types.Record, error)
}

// PDFSource fetches a URL and, when it serves a PDF, returns a plain-text
// excerpt. isPDF is false for any other content.
type PDFSource interface {
	Excerpt(ctx context.Context, url string) (text string, isPDF bool, err error)
}

// Lookup resolves single papers from a DOI, a URL, or pasted citation text.
// Any collaborator may be nil; the corresponding step is then skipped.
type Lookup struct {
	BioRxiv  Resolver
	Crossref Resolver

	// Enricher is tried first for DOIs in citation text; it carries
	// citation counts and open-access links the registries lack.
	Enricher Resolver

	Titles TitleFinder

	// FallbackTitles is tried when Titles has no match.
	FallbackTitles TitleFinder

	PDF    PDFSource
	Logger zerolog.Logger
}

// ByDOI routes a DOI to the registry that owns it: bioRxiv for 10.1101,
// falling back to Crossref when bioRxiv has no record; Crossref otherwise.
func (l *Lookup) ByDOI(ctx context.Context, raw string) (types.Record, error) {
	doi := NormalizeDOI(raw)
	if !IsDOI(doi) {
		return types.Record{}, fmt.Errorf("%q is not a DOI: %w", raw, ErrNoIdentifier)
	}

	if IsBioRxivDOI(doi) && l.BioRxiv != nil {
		rec, err := l.BioRxiv.Resolve(ctx, doi)
		if err == nil && rec.Title != "" {
			return rec, nil
		}
		l.Logger.Debug().Err(err).Str("doi", doi).Msg("bioRxiv had no record, trying Crossref")
	}

	if l.Crossref == nil {
		return types.Record{}, fmt.Errorf("DOI %s: no resolver configured", doi)
	}
	return l.Crossref.Resolve(ctx, doi)
}

// ByURL resolves a landing page or PDF link. A DOI in the URL wins; a PDF
// is searched for a DOI and then for a title; anything else falls back to
// a title guessed from the URL path.
func (l *Lookup) ByURL(ctx context.Context, raw string) (types.Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Record{}, ErrNoIdentifier
	}

	if doi := DOIFromURL(raw); doi != "" {
		rec, err := l.ByDOI(ctx, doi)
		if err == nil && rec.Title != "" {
			return rec, nil
		}
		l.Logger.Warn().Err(err).Str("doi", doi).Msg("DOI lookup failed, reading the page instead")
	}

	if l.PDF != nil {
		text, isPDF, err := l.PDF.Excerpt(ctx, raw)
		if err != nil {
			l.Logger.Debug().Err(err).Str("url", raw).Msg("fetching URL failed")
		}
		if isPDF {
			return l.fromPDFText(ctx, raw, text)
		}
	}

	guess := TitleFromURL(raw)
	if guess == "" || l.Titles == nil {
		return types.Record{}, fmt.Errorf("URL %s: %w", raw, ErrNoIdentifier)
	}
	return l.Titles.FindByTitle(ctx, guess)
}

// fromPDFText builds a record for a PDF link from its text.
func (l *Lookup) fromPDFText(ctx context.Context, pdfURL, text string) (types.Record, error) {
	base := types.Record{
		URL:     pdfURL,
		PDFURL:  pdfURL,
		Snippet: clip(CleanSnippet(text), crossrefSnippetLimit),
	}

	if dois := FindDOIs(text); len(dois) > 0 {
		rec, err := l.ByDOI(ctx, dois[0])
		if err == nil && rec.Title != "" {
			if rec.PDFURL == "" {
				rec.PDFURL = pdfURL
			}
			return rec, nil
		}
		base.DOI = dois[0]
	}

	title := guessPDFTitle(text)
	base.Title = title
	if title != "" && l.Titles != nil {
		if rec, err := l.Titles.FindByTitle(ctx, title); err == nil {
			// Fields read from the PDF itself take precedence.
			rec.URL, rec.PDFURL = pdfURL, pdfURL
			if base.DOI != "" {
				rec.DOI = base.DOI
			}
			if base.Snippet != "" {
				rec.Snippet = base.Snippet
			}
			return rec, nil
		}
	}
	if base.IsEmpty() {
		return types.Record{}, fmt.Errorf("PDF %s: %w", pdfURL, ErrNoIdentifier)
	}
	return base, nil
}

var abstractHeading = regexp.MustCompile(`(?i)^\s*abstract\b`)

// guessPDFTitle picks the first line before "Abstract" that reads like a
// title: 4 to 30 words, not a URL, DOI, or journal header.
func guessPDFTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if abstractHeading.MatchString(line) {
			break
		}
		line = strings.TrimSpace(line)
		words := strings.Fields(line)
		if len(words) < 4 || len(words) > 30 {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "http") || strings.Contains(lower, "doi") || strings.Contains(lower, "journal") || strings.Contains(lower, "©") {
			continue
		}
		return line
	}
	return ""
}

// Citations resolves every reference in pasted text. Each DOI found is
// resolved; references without a DOI are searched by their title. A
// reference that cannot be resolved yields a warning, not an error.
func (l *Lookup) Citations(ctx context.Context, text string) ([]types.Record, []Warning) {
	var records []types.Record
	var warnings []Warning

	for _, ref := range splitReferences(text) {
		dois := FindDOIs(ref)
		for _, doi := range dois {
			rec, err := l.resolveCitedDOI(ctx, doi)
			if err != nil {
				warnings = append(warnings, Warning{Source: types.SourceCrossref, Err: err})
				continue
			}
			records = append(records, rec)
		}
		if len(dois) > 0 {
			continue
		}

		title := citationTitle(ref)
		if title == "" {
			continue
		}
		rec, err := l.findTitle(ctx, title)
		if err != nil {
			warnings = append(warnings, Warning{Source: types.SourceSemanticScholar, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, warnings
}

func (l *Lookup) resolveCitedDOI(ctx context.Context, doi string) (types.Record, error) {
	if l.Enricher != nil {
		rec, err := l.Enricher.Resolve(ctx, doi)
		if err == nil && rec.Title != "" {
			return rec, nil
		}
	}
	return l.ByDOI(ctx, doi)
}

func (l *Lookup) findTitle(ctx context.Context, title string) (types.Record, error) {
	var firstErr error
	for _, f := range []TitleFinder{l.Titles, l.FallbackTitles} {
		if f == nil {
			continue
		}
		rec, err := f.FindByTitle(ctx, title)
		if err == nil {
			return rec, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("title %q: no title search configured", clip(title, 60))
	}
	return types.Record{}, firstErr
}

var (
	referenceSplit  = regexp.MustCompile(`\n\s*\n|\n\s*(?:\[\d+\]|\d+\.)\s+`)
	sentenceSplit   = regexp.MustCompile(`\.\s+|\?\s+`)
	leadingNumbered = regexp.MustCompile(`^\s*(?:\[\d+\]|\d+\.)\s*`)
)

// splitReferences breaks pasted text into individual references: blank
// lines and numbered markers ("[3]", "3.") separate entries. Text with a
// single entry per line is split on newlines.
func splitReferences(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	parts := referenceSplit.Split(text, -1)
	if len(parts) == 1 {
		parts = strings.Split(text, "\n")
	}

	var refs []string
	for _, p := range parts {
		p = strings.Join(strings.Fields(leadingNumbered.ReplaceAllString(p, "")), " ")
		if p != "" {
			refs = append(refs, p)
		}
	}
	return refs
}

// citationTitle picks the longest sentence of at least four words, which
// in author-year and numbered styles is almost always the title.
func citationTitle(ref string) string {
	best := ""
	for _, s := range sentenceSplit.Split(ref, -1) {
		s = strings.Trim(strings.TrimSpace(s), `"“”`)
		if len(strings.Fields(s)) < 4 {
			continue
		}
		if len(s) > len(best) {
			best = s
		}
	}
	return clip(best, 300)
}
