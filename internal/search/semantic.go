// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "title,authors,url,abstract,openAccessPdf,externalIds,venue,year,citationCount,publicationDate,publicationTypes"

// SemanticScholar searches the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client *httputil.Client
	APIKey string
}

// ID returns the source identifier.
func (s *SemanticScholar) ID() types.SourceID { return types.SourceSemanticScholar }

// Search queries /paper/search. The year range is sent upstream and
// re-applied to the returned records.
func (s *SemanticScholar) Search(ctx context.Context, q Query) ([]types.Record, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyQuery
	}

	params := url.Values{
		"query":  {q.Term()},
		"limit":  {strconv.Itoa(q.limit(10))},
		"fields": {semanticFields},
	}
	if yr := buildYearRange(q.YearFrom, q.YearTo); yr != "" {
		params.Set("year", yr)
	}

	var sr semanticResponse
	err := s.Client.RequestJSON(ctx, httputil.Request{
		URL:    semanticAPIBase + "/paper/search",
		Params: params,
		Header: s.header(),
	}, &sr)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar search: %w", err)
	}

	records := make([]types.Record, 0, len(sr.Data))
	for _, p := range sr.Data {
		records = append(records, p.toRecord())
	}
	return q.filterYears(records), nil
}

// Resolve fetches one paper by DOI.
func (s *SemanticScholar) Resolve(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return types.Record{}, ErrEmptyQuery
	}

	var p semanticPaper
	err := s.Client.RequestJSON(ctx, httputil.Request{
		URL:    semanticAPIBase + "/paper/DOI:" + doi,
		Params: url.Values{"fields": {semanticFields}},
		Header: s.header(),
	}, &p)
	if err != nil {
		if httputil.IsStatus(err, http.StatusNotFound) {
			return types.Record{}, fmt.Errorf("Semantic Scholar DOI %s: %w", doi, ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("Semantic Scholar DOI lookup: %w", err)
	}
	return p.toRecord(), nil
}

// FindByTitle returns the best match for a title-like phrase.
func (s *SemanticScholar) FindByTitle(ctx context.Context, title string) (types.Record, error) {
	records, err := s.Search(ctx, Query{Text: title, Limit: 1})
	if err != nil {
		return types.Record{}, err
	}
	if len(records) == 0 {
		return types.Record{}, fmt.Errorf("Semantic Scholar title %q: %w", clip(title, 60), ErrNotFound)
	}
	return records[0], nil
}

func (s *SemanticScholar) header() http.Header {
	h := http.Header{}
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}
	return h
}

// buildYearRange returns a Semantic Scholar year filter string (e.g. "2020-2023").
func buildYearRange(from, to time.Time) string {
	switch {
	case !from.IsZero() && !to.IsZero():
		return fmt.Sprintf("%d-%d", from.Year(), to.Year())
	case !from.IsZero():
		return fmt.Sprintf("%d-", from.Year())
	case !to.IsZero():
		return fmt.Sprintf("-%d", to.Year())
	default:
		return ""
	}
}

// IsNotFound reports whether err means the upstream had no such record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total flexInt         `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          flexString          `json:"paperId"`
	Title            flexString          `json:"title"`
	URL              flexString          `json:"url"`
	Abstract         flexString          `json:"abstract"`
	Venue            flexString          `json:"venue"`
	Year             flexInt             `json:"year"`
	CitationCount    *flexInt            `json:"citationCount"`
	PublicationDate  flexString          `json:"publicationDate"`
	PublicationTypes flexStrings         `json:"publicationTypes"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF    *semanticPDF        `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name flexString `json:"name"`
}

type semanticExternalIDs struct {
	DOI    flexString `json:"DOI"`
	PubMed flexString `json:"PubMed"`
	ArXiv  flexString `json:"ArXiv"`
}

type semanticPDF struct {
	URL flexString `json:"url"`
}

func (p semanticPaper) toRecord() types.Record {
	doi := NormalizeDOI(string(p.ExternalIDs.DOI))

	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if n := strings.TrimSpace(string(a.Name)); n != "" {
			names = append(names, n)
		}
	}

	r := types.Record{
		Title:   strings.TrimSpace(string(p.Title)),
		URL:     string(p.URL),
		Authors: strings.Join(names, ", "),
		Snippet: CleanSnippet(string(p.Abstract)),
		DOI:     doi,
		Venue:   string(p.Venue),
		Year:    int(p.Year),
		Source:  types.SourceSemanticScholar,
	}
	if r.URL == "" && doi != "" {
		r.URL = "https://doi.org/" + doi
	}
	if p.OpenAccessPDF != nil {
		r.PDFURL = string(p.OpenAccessPDF.URL)
	}
	if p.CitationCount != nil {
		r.SetExtra("citationCount", int(*p.CitationCount))
	}
	r.SetExtra("publicationDate", string(p.PublicationDate))
	if len(p.PublicationTypes) > 0 {
		r.SetExtra("publicationTypes", []string(p.PublicationTypes))
	}
	r.SetExtra("pmid", string(p.ExternalIDs.PubMed))
	return r
}
