// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries bibliographic APIs and merges their results into
// one deduplicated candidate list.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/literature-scout/internal/observability"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// ErrEmptyQuery is returned by adapters for a blank query. No request is sent.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrNotFound is returned by resolvers when the upstream has no record.
var ErrNotFound = errors.New("record not found")

// Searcher is one bibliographic source that supports free-text search.
type Searcher interface {
	ID() types.SourceID
	Search(ctx context.Context, q Query) ([]types.Record, error)
}

// Resolver looks up a single record by DOI.
type Resolver interface {
	Resolve(ctx context.Context, doi string) (types.Record, error)
}

// Query holds the search parameters. Zero dates leave that side of the
// range open.
type Query struct {
	Text     string
	Limit    int
	YearFrom time.Time
	YearTo   time.Time
}

// Term returns the trimmed query text.
func (q Query) Term() string { return strings.TrimSpace(q.Text) }

// IsEmpty reports whether the query has no searchable text.
func (q Query) IsEmpty() bool { return q.Term() == "" }

func (q Query) limit(fallback int) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return fallback
}

// InRange reports whether year falls within the query's date range.
// Unknown years (0) are kept.
func (q Query) InRange(year int) bool {
	if year == 0 {
		return true
	}
	if !q.YearFrom.IsZero() && year < q.YearFrom.Year() {
		return false
	}
	if !q.YearTo.IsZero() && year > q.YearTo.Year() {
		return false
	}
	return true
}

// filterYears drops records outside the query's year range.
func (q Query) filterYears(records []types.Record) []types.Record {
	if q.YearFrom.IsZero() && q.YearTo.IsZero() {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if q.InRange(r.Year) {
			out = append(out, r)
		}
	}
	return out
}

// Warning records a source that failed during aggregation.
type Warning struct {
	Source types.SourceID `json:"source"`
	Err    error          `json:"-"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

// MarshalJSON renders the error as a message.
func (w Warning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source  types.SourceID `json:"source"`
		Message string         `json:"message"`
	}{w.Source, fmt.Sprint(w.Err)})
}

// Result is the concatenated output of every requested source.
type Result struct {
	Records  []types.Record
	Warnings []Warning
}

// Aggregator queries sources one after another. It neither dedupes nor
// truncates; see Collect.
type Aggregator struct {
	searchers map[types.SourceID]Searcher
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewAggregator registers the given searchers under their IDs.
func NewAggregator(logger zerolog.Logger, metrics *observability.Metrics, searchers ...Searcher) *Aggregator {
	m := make(map[types.SourceID]Searcher, len(searchers))
	for _, s := range searchers {
		m[s.ID()] = s
	}
	return &Aggregator{searchers: m, logger: logger, metrics: metrics}
}

// Aggregate runs q against each requested source in order and concatenates
// the results. A failing or unknown source contributes no records and one
// warning; the remaining sources still run. Requesting a source twice
// queries it once.
func (a *Aggregator) Aggregate(ctx context.Context, q Query, sources []types.SourceID) Result {
	var res Result
	seen := make(map[types.SourceID]bool, len(sources))

	for _, id := range sources {
		if seen[id] {
			continue
		}
		seen[id] = true

		log := observability.WithSource(a.logger, id)
		s, ok := a.searchers[id]
		if !ok {
			err := fmt.Errorf("source %q is not configured", id)
			log.Warn().Err(err).Msg("skipping source")
			res.Warnings = append(res.Warnings, Warning{Source: id, Err: err})
			continue
		}

		start := time.Now()
		records, err := s.Search(ctx, q)
		elapsed := time.Since(start)
		a.metrics.RecordSourceSearch(id, len(records), elapsed, err != nil)

		if err != nil {
			log.Warn().Err(err).Dur("elapsed", elapsed).Msg("source failed")
			res.Warnings = append(res.Warnings, Warning{Source: id, Err: err})
			continue
		}
		log.Debug().Int("records", len(records)).Dur("elapsed", elapsed).Msg("source returned")
		res.Records = append(res.Records, records...)
	}
	return res
}

// DedupeKey returns the identity used for deduplication: the lower-cased
// DOI without resolver prefix, else the lower-cased URL, else the
// lower-cased title. It is "" when the record has none of these.
func DedupeKey(r types.Record) string {
	if doi := NormalizeDOI(r.DOI); doi != "" {
		return strings.ToLower(doi)
	}
	if u := strings.TrimSpace(r.URL); u != "" {
		return strings.ToLower(u)
	}
	return strings.ToLower(strings.TrimSpace(r.Title))
}

// Dedupe keeps the first record for each key, preserving input order.
// Fields are never merged. Records whose key is empty are always kept.
func Dedupe(records []types.Record) []types.Record {
	seen := make(map[string]bool, len(records))
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		key := DedupeKey(r)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, r)
	}
	return out
}

// DropEmpty removes records with no title, URL, or DOI.
func DropEmpty(records []types.Record) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if !r.IsEmpty() {
			out = append(out, r)
		}
	}
	return out
}

// Truncate returns at most limit records. A non-positive limit keeps all.
func Truncate(records []types.Record, limit int) []types.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

// Collect applies DropEmpty, Dedupe, and Truncate in that order and
// reports how many records deduplication removed.
func Collect(records []types.Record, limit int) ([]types.Record, int) {
	kept := DropEmpty(records)
	deduped := Dedupe(kept)
	return Truncate(deduped, limit), len(kept) - len(deduped)
}

// Output is the result of a search as presented to the user.
type Output struct {
	Records     []types.Record `json:"records"`
	DupsRemoved int            `json:"duplicates_removed"`
	Warnings    []Warning      `json:"warnings,omitempty"`
}

// FormatTable writes records as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-28s  %s\n",
		"Rank", "Title", "Authors", "Year", "DOI", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for i, r := range out.Records {
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-28s  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), year, truncate(r.DOI, 28), r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Records))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// FormatJSON writes the output as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// formatAuthors shortens a joined author list to its first author.
func formatAuthors(authors string) string {
	first, rest, multi := strings.Cut(authors, ",")
	if !multi {
		first, rest, multi = strings.Cut(authors, ";")
	}
	first = strings.TrimSpace(first)
	if multi && strings.TrimSpace(rest) != "" {
		return truncate(first, 14) + " et al."
	}
	return truncate(first, 20)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
