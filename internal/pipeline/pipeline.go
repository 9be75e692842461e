// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one request end to end: gather candidate records,
// score each against the researcher's interests, and write the eligible
// ones to the reference store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/literature-scout/internal/annotate"
	"github.com/pdiddy/literature-scout/internal/observability"
	"github.com/pdiddy/literature-scout/internal/refstore"
	"github.com/pdiddy/literature-scout/internal/relevance"
	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/internal/tags"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// ErrInvalidInput is returned before any network call when a request
// cannot be run. The wrapped message is meant for the user.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Status is what happened to one candidate.
type Status string

const (
	// StatusScored means the candidate was annotated and nothing was written.
	StatusScored    Status = "scored"
	StatusSaved     Status = "saved"
	StatusDuplicate Status = "duplicate"

	// StatusFailed means the store rejected the item.
	StatusFailed Status = "failed"
)

// Outcome is the per-candidate result of a run.
type Outcome struct {
	Candidate types.ScoredCandidate `json:"candidate" yaml:"candidate"`
	Eligible  bool                  `json:"eligible" yaml:"eligible"`
	Status    Status                `json:"status" yaml:"status"`

	// ItemKey is the store key of a saved item.
	ItemKey string `json:"item_key,omitempty" yaml:"item_key,omitempty"`

	Suggestions []tags.Suggestion `json:"tag_suggestions,omitempty" yaml:"tag_suggestions,omitempty"`

	// Warnings lists contained failures: scoring, enrichment, duplicate
	// check, or store write.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (o *Outcome) warn(step string, err error) {
	o.Warnings = append(o.Warnings, fmt.Sprintf("%s: %v", step, err))
}

// Report is the result of one request.
type Report struct {
	Outcomes    []Outcome        `json:"outcomes"`
	DupsRemoved int              `json:"duplicates_removed"`
	Warnings    []search.Warning `json:"warnings,omitempty"`
}

// Records returns the candidates' records in order.
func (r Report) Records() []types.Record {
	out := make([]types.Record, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, o.Candidate.Record)
	}
	return out
}

// Count returns how many outcomes have status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Eligible returns how many candidates passed the relevance gate.
func (r Report) Eligible() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Eligible {
			n++
		}
	}
	return n
}

// Options are the per-request settings shared by every entry point.
type Options struct {
	Profile types.Profile

	// Save writes eligible candidates to the store.
	Save            bool
	AllowDuplicates bool
	Build           refstore.BuildOptions
}

func (o Options) validate() error {
	if t := o.Profile.Threshold; t < 0 || t > relevance.MaxScore {
		return invalid("threshold must be between 0 and %d, got %d", relevance.MaxScore, t)
	}
	return nil
}

// Pipeline wires the stages together. Oracle, PDF, and Store may be nil:
// without an oracle every candidate scores 0, without a PDF source the
// oracle sees no excerpt, and without a store nothing is written.
type Pipeline struct {
	Aggregator  *search.Aggregator
	Identifiers *search.Lookup

	Oracle annotate.Oracle
	PDF    search.PDFSource
	Store  refstore.Store

	// Crossref and BioRxiv enrich the chosen item just before it is written.
	Crossref search.Resolver
	BioRxiv  search.Resolver

	Reconciler tags.Reconciler
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// process scores records one by one and saves the eligible ones. No
// failure aborts the loop.
func (p *Pipeline) process(ctx context.Context, records []types.Record, opts Options) []Outcome {
	gate := relevance.Gate{Threshold: opts.Profile.Threshold}
	outcomes := make([]Outcome, 0, len(records))

	for _, r := range records {
		log := p.Logger.With().Str("title", r.Title).Logger()
		out := Outcome{Status: StatusScored}

		cand, err := annotate.Score(ctx, p.Oracle, annotate.Request{
			Record:    r,
			Interests: opts.Profile.Interests,
			Excerpt:   p.excerpt(ctx, r, log),
		})
		if err != nil {
			log.Warn().Err(err).Msg("scoring failed, using score 0")
			out.warn("scoring", err)
		}

		score, ok := gate.Admit(cand.Score)
		cand.Score = score
		out.Candidate = cand
		out.Eligible = ok
		p.Metrics.RecordScore(score, ok)

		if ok && opts.Save && p.Store != nil {
			p.save(ctx, &out, opts, log)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// excerpt returns PDF text for the oracle, or "" on any failure.
func (p *Pipeline) excerpt(ctx context.Context, r types.Record, log zerolog.Logger) string {
	if p.Oracle == nil || p.PDF == nil {
		return ""
	}
	src := r.PDFURL
	if src == "" {
		src = r.URL
	}
	if src == "" {
		return ""
	}
	text, _, err := p.PDF.Excerpt(ctx, src)
	if err != nil {
		log.Debug().Err(err).Str("url", src).Msg("no PDF excerpt")
		return ""
	}
	return text
}

// save reconciles tags, checks for duplicates, enriches, and creates the
// item. CreateItem is called at most once.
func (p *Pipeline) save(ctx context.Context, out *Outcome, opts Options, log zerolog.Logger) {
	cand := out.Candidate

	reconciler := p.Reconciler
	if reconciler.Suggest == 0 && reconciler.Replace == 0 {
		reconciler = tags.NewReconciler(0, 0, p.Logger)
	}
	topical, _ := splitScoreTags(tags.Normalize(cand.Tags))
	reconciled, suggestions := reconciler.Reconcile(ctx, topical, p.Store)
	cand.Tags = tags.EnsureScoreTag(reconciled, cand.Score)
	out.Candidate = cand
	out.Suggestions = suggestions
	for _, s := range suggestions {
		log.Info().Str("suggestion", s.String()).Msg("tag reconciled")
	}

	if !opts.AllowDuplicates {
		dup, err := refstore.IsDuplicate(ctx, p.Store, cand.Title, cand.DOI)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("duplicate check failed, saving anyway")
			out.warn("duplicate check", err)
		case dup:
			log.Warn().Msg("skipped, already in library")
			out.Status = StatusDuplicate
			p.Metrics.RecordSkipped("duplicate")
			return
		}
	}

	item := refstore.BuildItem(cand, p.enrich(ctx, cand.Record, out, log), opts.Build)
	key, err := p.Store.CreateItem(ctx, item)
	if err != nil {
		log.Warn().Err(err).Msg("store write failed")
		out.warn("store", err)
		out.Status = StatusFailed
		p.Metrics.RecordSkipped("error")
		return
	}
	out.Status = StatusSaved
	out.ItemKey = key
	p.Metrics.RecordSaved()
	log.Info().Str("key", key).Int("score", cand.Score).Msg("saved to library")
}

// enrich fetches registry metadata for the item being written. Failures
// leave the corresponding record empty.
func (p *Pipeline) enrich(ctx context.Context, r types.Record, out *Outcome, log zerolog.Logger) refstore.Enrichment {
	var e refstore.Enrichment
	doi := search.NormalizeDOI(r.DOI)
	if doi == "" {
		return e
	}

	if p.Crossref != nil && r.Source != types.SourceCrossref {
		rec, err := p.Crossref.Resolve(ctx, doi)
		if err != nil {
			log.Debug().Err(err).Str("doi", doi).Msg("Crossref enrichment failed")
			out.warn("Crossref enrichment", err)
		} else {
			e.Crossref = rec
		}
	}
	if p.BioRxiv != nil && search.IsBioRxivDOI(doi) && r.Source != types.SourceBioRxiv {
		rec, err := p.BioRxiv.Resolve(ctx, doi)
		if err != nil {
			log.Debug().Err(err).Str("doi", doi).Msg("bioRxiv enrichment failed")
			out.warn("bioRxiv enrichment", err)
		} else {
			e.BioRxiv = rec
		}
	}
	return e
}

// splitScoreTags separates "ai score-N" tags from the rest so they never
// take part in similarity matching.
func splitScoreTags(in []string) (topical, score []string) {
	for _, t := range in {
		if strings.HasPrefix(t, tags.ScorePrefix) {
			score = append(score, t)
			continue
		}
		topical = append(topical, t)
	}
	return topical, score
}
