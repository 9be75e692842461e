// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// Endpoints declared as vars so tests can substitute httptest servers.
var (
	biorxivAPIBase     = "https://api.biorxiv.org/details"
	biorxivContentBase = "https://www.biorxiv.org/content"
)

const biorxivSnippetLimit = 1200

// BioRxiv resolves preprint DOIs through the bioRxiv details API.
type BioRxiv struct {
	Client *httputil.Client
}

// ID returns the source identifier.
func (b *BioRxiv) ID() types.SourceID { return types.SourceBioRxiv }

// Resolve fetches the preprint for doi. A "vN" suffix selects that version
// when the API lists it; otherwise the most recent version is used.
func (b *BioRxiv) Resolve(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeDOI(doi)
	if !IsBioRxivDOI(doi) {
		return types.Record{}, fmt.Errorf("bioRxiv: %q is not a 10.1101 DOI: %w", doi, ErrNotFound)
	}
	base, version := splitVersion(doi)

	var resp struct {
		Collection []biorxivPaper `json:"collection"`
	}
	err := b.Client.RequestJSON(ctx, httputil.Request{
		URL: biorxivAPIBase + "/biorxiv/" + base + "/na/json",
	}, &resp)
	if err != nil {
		return types.Record{}, fmt.Errorf("bioRxiv details: %w", err)
	}
	if len(resp.Collection) == 0 {
		return types.Record{}, fmt.Errorf("bioRxiv DOI %s: %w", doi, ErrNotFound)
	}

	paper := resp.Collection[len(resp.Collection)-1]
	if version != "" {
		for _, p := range resp.Collection {
			if string(p.Version) == version {
				paper = p
				break
			}
		}
	}
	return paper.toRecord(doi), nil
}

// bioRxiv API JSON structures.
type biorxivPaper struct {
	DOI      flexString `json:"doi"`
	Title    flexString `json:"title"`
	Authors  flexString `json:"authors"`
	Date     flexString `json:"date"`
	Version  flexString `json:"version"`
	Category flexString `json:"category"`
	Abstract flexString `json:"abstract"`
	Server   flexString `json:"server"`
}

// biorxivAuthors converts "Last, F.; Other, G." into "F. Last; G. Other".
func biorxivAuthors(raw string) string {
	var names []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		last, first, ok := strings.Cut(part, ",")
		if ok {
			part = strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
		}
		names = append(names, part)
	}
	return strings.Join(names, "; ")
}

func (p biorxivPaper) toRecord(doi string) types.Record {
	date := strings.TrimSpace(string(p.Date))
	year := 0
	if len(date) >= 4 {
		year, _ = strconv.Atoi(date[:4])
	}

	abstract := strings.TrimSpace(string(p.Abstract))
	r := types.Record{
		Title:   strings.TrimSpace(string(p.Title)),
		URL:     biorxivContentBase + "/" + doi,
		Authors: biorxivAuthors(string(p.Authors)),
		Snippet: clip(CleanSnippet(abstract), biorxivSnippetLimit),
		PDFURL:  biorxivContentBase + "/" + doi + ".full.pdf",
		DOI:     doi,
		Venue:   "bioRxiv",
		Year:    year,
		Source:  types.SourceBioRxiv,
	}
	r.SetExtra("abstract", abstract)
	r.SetExtra("publicationDate", date)
	r.SetExtra("category", string(p.Category))
	r.SetExtra("version", string(p.Version))
	r.SetExtra("server", "biorxiv")
	return r
}
