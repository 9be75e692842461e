// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// SearchRequest is a free-text search across sources.
type SearchRequest struct {
	Query search.Query

	// Sources defaults to types.SearchSources when empty.
	Sources []types.SourceID

	Options
}

// LookupRequest resolves one paper from a DOI or a URL.
type LookupRequest struct {
	Identifier string
	Options
}

// CiteRequest resolves pasted reference-list text.
type CiteRequest struct {
	Text string
	Options
}

// Search aggregates the query across sources, deduplicates and truncates
// the records, and processes each one.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (Report, error) {
	if req.Query.IsEmpty() {
		return Report{}, invalid("enter a search query")
	}
	q := req.Query
	if !q.YearFrom.IsZero() && !q.YearTo.IsZero() && q.YearFrom.After(q.YearTo) {
		return Report{}, invalid("start date %s is after end date %s",
			q.YearFrom.Format("2006-01-02"), q.YearTo.Format("2006-01-02"))
	}
	if err := req.Options.validate(); err != nil {
		return Report{}, err
	}
	if p.Aggregator == nil {
		return Report{}, fmt.Errorf("search is not configured")
	}

	sources := req.Sources
	if len(sources) == 0 {
		sources = types.SearchSources
	}

	res := p.Aggregator.Aggregate(ctx, q, sources)
	records, dups := search.Collect(res.Records, q.Limit)
	p.Metrics.RecordDuplicates(dups)
	p.Logger.Info().
		Int("records", len(records)).
		Int("duplicates_removed", dups).
		Int("failed_sources", len(res.Warnings)).
		Msg("search complete")

	return Report{
		Outcomes:    p.process(ctx, records, req.Options),
		DupsRemoved: dups,
		Warnings:    res.Warnings,
	}, nil
}

// Lookup resolves a DOI or URL to one record and processes it.
func (p *Pipeline) Lookup(ctx context.Context, req LookupRequest) (Report, error) {
	id := strings.TrimSpace(req.Identifier)
	if id == "" {
		return Report{}, invalid("enter a DOI or URL")
	}
	isDOI := search.IsDOI(search.NormalizeDOI(id))
	isURL := strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
	if !isDOI && !isURL {
		return Report{}, invalid("%q is neither a DOI nor an http(s) URL", id)
	}
	if err := req.Options.validate(); err != nil {
		return Report{}, err
	}
	if p.Identifiers == nil {
		return Report{}, fmt.Errorf("lookup is not configured")
	}

	var (
		rec types.Record
		err error
	)
	if isDOI {
		rec, err = p.Identifiers.ByDOI(ctx, id)
	} else {
		rec, err = p.Identifiers.ByURL(ctx, id)
	}
	if err != nil {
		return Report{}, fmt.Errorf("resolving %s: %w", id, err)
	}

	return Report{Outcomes: p.process(ctx, []types.Record{rec}, req.Options)}, nil
}

// Cite resolves every reference in pasted text and processes the records
// that resolved. Unresolved references become warnings.
func (p *Pipeline) Cite(ctx context.Context, req CiteRequest) (Report, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Report{}, invalid("paste at least one citation")
	}
	if err := req.Options.validate(); err != nil {
		return Report{}, err
	}
	if p.Identifiers == nil {
		return Report{}, fmt.Errorf("lookup is not configured")
	}

	records, warnings := p.Identifiers.Citations(ctx, req.Text)
	if len(records) == 0 && len(warnings) == 0 {
		return Report{}, fmt.Errorf("reading citations: %w", search.ErrNoIdentifier)
	}
	records, dups := search.Collect(records, 0)

	return Report{
		Outcomes:    p.process(ctx, records, req.Options),
		DupsRemoved: dups,
		Warnings:    warnings,
	}, nil
}
