// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/pkg/types"
)

type mockResolver struct {
	records map[string]types.Record
	calls   []string
}

func (m *mockResolver) Resolve(_ context.Context, doi string) (types.Record, error) {
	m.calls = append(m.calls, doi)
	if r, ok := m.records[doi]; ok {
		return r, nil
	}
	return types.Record{}, fmt.Errorf("DOI %s: %w", doi, ErrNotFound)
}

type mockTitles struct {
	records map[string]types.Record
	calls   []string
}

func (m *mockTitles) FindByTitle(_ context.Context, title string) (types.Record, error) {
	m.calls = append(m.calls, title)
	if r, ok := m.records[title]; ok {
		return r, nil
	}
	return types.Record{}, ErrNotFound
}

type mockPDF struct {
	text  string
	isPDF bool
	err   error
}

func (m *mockPDF) Excerpt(context.Context, string) (string, bool, error) {
	return m.text, m.isPDF, m.err
}

func TestLookupByDOIRoutesBioRxiv(t *testing.T) {
	bio := &mockResolver{records: map[string]types.Record{
		"10.1101/2024.01.02.573950": {Title: "Preprint", Source: types.SourceBioRxiv},
	}}
	cr := &mockResolver{}
	l := &Lookup{BioRxiv: bio, Crossref: cr, Logger: zerolog.Nop()}

	r, err := l.ByDOI(context.Background(), "https://doi.org/10.1101/2024.01.02.573950")
	require.NoError(t, err)
	assert.Equal(t, "Preprint", r.Title)
	assert.Empty(t, cr.calls, "Crossref is not consulted")
}

func TestLookupByDOIBioRxivFallsBackToCrossref(t *testing.T) {
	bio := &mockResolver{}
	cr := &mockResolver{records: map[string]types.Record{
		"10.1101/2019.12.11.123456": {Title: "Published version", Source: types.SourceCrossref},
	}}
	l := &Lookup{BioRxiv: bio, Crossref: cr, Logger: zerolog.Nop()}

	r, err := l.ByDOI(context.Background(), "10.1101/2019.12.11.123456")
	require.NoError(t, err)
	assert.Equal(t, "Published version", r.Title)
	assert.Len(t, bio.calls, 1)
}

func TestLookupByDOIOtherPrefixUsesCrossref(t *testing.T) {
	bio := &mockResolver{}
	cr := &mockResolver{records: map[string]types.Record{"10.1038/x": {Title: "Nature paper"}}}
	l := &Lookup{BioRxiv: bio, Crossref: cr, Logger: zerolog.Nop()}

	r, err := l.ByDOI(context.Background(), "10.1038/x")
	require.NoError(t, err)
	assert.Equal(t, "Nature paper", r.Title)
	assert.Empty(t, bio.calls)
}

func TestLookupByDOIRejectsNonDOI(t *testing.T) {
	l := &Lookup{Crossref: &mockResolver{}}
	_, err := l.ByDOI(context.Background(), "not a doi")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestLookupByURLPrefersDOI(t *testing.T) {
	cr := &mockResolver{records: map[string]types.Record{"10.1038/s41586-021-03819-2": {Title: "AlphaFold"}}}
	pdf := &mockPDF{}
	l := &Lookup{Crossref: cr, PDF: pdf, Logger: zerolog.Nop()}

	r, err := l.ByURL(context.Background(), "https://www.nature.com/articles/s41586-021-03819-2")
	require.NoError(t, err)
	assert.Equal(t, "AlphaFold", r.Title)
}

func TestLookupByURLReadsPDF(t *testing.T) {
	cr := &mockResolver{records: map[string]types.Record{"10.1016/j.cell.2020.01.001": {Title: "From PDF DOI"}}}
	pdf := &mockPDF{isPDF: true, text: "Some Journal Header\nA Study of Things in Cells\nAbstract\nDOI: 10.1016/j.cell.2020.01.001"}
	l := &Lookup{Crossref: cr, PDF: pdf, Logger: zerolog.Nop()}

	r, err := l.ByURL(context.Background(), "https://example.org/files/paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "From PDF DOI", r.Title)
	assert.Equal(t, "https://example.org/files/paper.pdf", r.PDFURL)
}

func TestLookupByURLPDFTitleSearch(t *testing.T) {
	titles := &mockTitles{records: map[string]types.Record{
		"Protein Folding in Crowded Cellular Environments": {Title: "Protein Folding in Crowded Cellular Environments", DOI: "10.2/found"},
	}}
	pdf := &mockPDF{isPDF: true, text: "Journal of Things\nProtein Folding in Crowded Cellular Environments\nAbstract\nWe study it."}
	l := &Lookup{Titles: titles, PDF: pdf, Logger: zerolog.Nop()}

	r, err := l.ByURL(context.Background(), "https://example.org/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "10.2/found", r.DOI)
	assert.Equal(t, "https://example.org/x.pdf", r.URL)
	assert.Equal(t, "https://example.org/x.pdf", r.PDFURL)
}

func TestLookupByURLTitleGuess(t *testing.T) {
	titles := &mockTitles{records: map[string]types.Record{
		"papers protein folding kinetics": {Title: "Protein folding kinetics"},
	}}
	l := &Lookup{Titles: titles, PDF: &mockPDF{isPDF: false}, Logger: zerolog.Nop()}

	r, err := l.ByURL(context.Background(), "https://example.org/papers/protein-folding-kinetics")
	require.NoError(t, err)
	assert.Equal(t, "Protein folding kinetics", r.Title)
}

func TestLookupByURLEmpty(t *testing.T) {
	l := &Lookup{}
	_, err := l.ByURL(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestGuessPDFTitle(t *testing.T) {
	text := "Nature Journal of Biology\nhttps://example.org/article\nShort line\nLarge Language Models for Protein Design\nAbstract\nAnother Line That Is Long Enough"
	assert.Equal(t, "Large Language Models for Protein Design", guessPDFTitle(text))
	assert.Empty(t, guessPDFTitle("Abstract\nEverything after the heading is ignored"))
}

func TestSplitReferences(t *testing.T) {
	numbered := "[1] Smith J. A paper on folding. Nature. 2020.\n[2] Doe A. Another paper here. Cell. 2021."
	refs := splitReferences(numbered)
	require.Len(t, refs, 2)
	assert.Equal(t, "Smith J. A paper on folding. Nature. 2020.", refs[0])

	blank := "Smith J. A paper on folding.\n\nDoe A. Another paper\nwrapped across lines."
	refs = splitReferences(blank)
	require.Len(t, refs, 2)
	assert.Equal(t, "Doe A. Another paper wrapped across lines.", refs[1])

	lines := "one reference\nsecond reference"
	assert.Len(t, splitReferences(lines), 2)
	assert.Nil(t, splitReferences("   "))
}

func TestCitationTitle(t *testing.T) {
	ref := "Jumper J, Evans R. Highly accurate protein structure prediction with AlphaFold. Nature. 2021;596:583-589."
	assert.Equal(t, "Highly accurate protein structure prediction with AlphaFold", citationTitle(ref))
	assert.Empty(t, citationTitle("Too. Short. Bits."))
}

func TestLookupCitations(t *testing.T) {
	enricher := &mockResolver{records: map[string]types.Record{
		"10.1038/nature12373": {Title: "Enriched", Source: types.SourceSemanticScholar},
	}}
	cr := &mockResolver{records: map[string]types.Record{
		"10.1016/j.cell.2020.01.001": {Title: "From Crossref", Source: types.SourceCrossref},
	}}
	titles := &mockTitles{}
	fallback := &mockTitles{records: map[string]types.Record{
		"Highly accurate protein structure prediction with AlphaFold": {Title: "AlphaFold"},
	}}
	l := &Lookup{Crossref: cr, Enricher: enricher, Titles: titles, FallbackTitles: fallback, Logger: zerolog.Nop()}

	text := `1. Author A. Something. Nature. doi:10.1038/nature12373
2. Author B. Other thing. Cell. https://doi.org/10.1016/j.cell.2020.01.001
3. Jumper J, Evans R. Highly accurate protein structure prediction with AlphaFold. Nature. 2021.
4. Nobody N. A reference nobody can resolve at all. 1999.
5. Missing C. Gone. doi:10.9999/missing`

	records, warnings := l.Citations(context.Background(), text)
	require.Len(t, records, 3)
	assert.Equal(t, "Enriched", records[0].Title)
	assert.Equal(t, "From Crossref", records[1].Title)
	assert.Equal(t, "AlphaFold", records[2].Title)

	require.Len(t, warnings, 2)
	assert.Equal(t, types.SourceSemanticScholar, warnings[0].Source)
	assert.True(t, errors.Is(warnings[0].Err, ErrNotFound))
	assert.Equal(t, types.SourceCrossref, warnings[1].Source)
	assert.Len(t, titles.calls, 2, "primary title search tried for both title-only references")
}
