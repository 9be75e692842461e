// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-scout/internal/annotate"
	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/internal/observability"
	"github.com/pdiddy/literature-scout/internal/pdftext"
	"github.com/pdiddy/literature-scout/internal/pipeline"
	"github.com/pdiddy/literature-scout/internal/refstore"
	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/internal/tags"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// addRunFlags registers the flags shared by search, lookup, and cite.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("threshold", 0, "minimum score (0-3) a paper needs to be saved")
	cmd.Flags().Bool("save", false, "write eligible papers to the configured store")
	cmd.Flags().String("store", "", "store backend: none, zotero, or sqlite")
	cmd.Flags().String("collection", "", "file saved items into this collection")
	cmd.Flags().Bool("allow-duplicates", false, "skip the duplicate check before saving")
	cmd.Flags().String("model", "", "model used to score papers")
	cmd.Flags().Bool("no-annotate", false, "do not call the scoring model; every paper scores 0")
	cmd.Flags().StringSlice("topic", nil, "research topic (repeatable; replaces configured topics)")
	cmd.Flags().StringSlice("author", nil, "author of interest (repeatable; replaces configured authors)")
	cmd.Flags().StringSlice("journal", nil, "journal of interest (repeatable; replaces configured journals)")
	cmd.Flags().Bool("json", false, "output results as JSON")
}

// newPipeline builds every stage from cfg. The returned close function
// releases the store.
func newPipeline(cmd *cobra.Command, cfg types.Config) (*pipeline.Pipeline, func() error, error) {
	logger := app.logger
	base := httputil.NewClient(cfg.Search.HTTPConfig, cfg.Search.Retry)
	limited := func(src types.SourceID) *httputil.Client {
		return base.WithLimit(cfg.Search.RateLimits[string(src)])
	}

	s2 := &search.SemanticScholar{
		Client: limited(types.SourceSemanticScholar),
		APIKey: cfg.Search.SemanticScholarAPIKey,
	}
	pm := &search.PubMed{
		Client: limited(types.SourcePubMed),
		APIKey: cfg.Search.NCBIAPIKey,
		Email:  cfg.Search.NCBIEmail,
		Logger: observability.WithSource(logger, types.SourcePubMed),
	}
	cr := &search.Crossref{
		Client: limited(types.SourceCrossref),
		Mailto: cfg.Search.CrossrefMailto,
	}
	bx := &search.BioRxiv{Client: limited(types.SourceBioRxiv)}
	pdf := pdftext.New(base, cfg.Annotate.ExcerptChars)
	excerpts := pdftext.New(base, cfg.Annotate.ExcerptChars)
	excerpts.Sections = true

	p := &pipeline.Pipeline{
		Aggregator: search.NewAggregator(logger, app.metrics, s2, pm, cr),
		Identifiers: &search.Lookup{
			BioRxiv:        bx,
			Crossref:       cr,
			Enricher:       s2,
			Titles:         s2,
			FallbackTitles: pm,
			PDF:            pdf,
			Logger:         logger,
		},
		PDF:        excerpts,
		Crossref:   cr,
		BioRxiv:    bx,
		Reconciler: newReconciler(cfg),
		Logger:     logger,
		Metrics:    app.metrics,
	}

	noAnnotate, _ := cmd.Flags().GetBool("no-annotate")
	switch {
	case noAnnotate || !cfg.Annotate.Enabled:
		logger.Info().Msg("scoring disabled, every paper scores 0")
	case cfg.Annotate.APIKey == "":
		logger.Warn().Msg("no annotate API key configured, every paper scores 0")
	default:
		p.Oracle = annotate.NewClaudeOracle(cfg.Annotate.AIConfig, base)
	}

	closeStore := func() error { return nil }
	save, _ := cmd.Flags().GetBool("save")
	if save {
		if cfg.Store.Backend == types.StoreNone {
			return nil, nil, fmt.Errorf("--save needs a store backend (set store.backend or --store)")
		}
		store, err := refstore.Open(cfg.Store, base)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
		}
		p.Store = store
		closeStore = store.Close
	}
	return p, closeStore, nil
}

func newReconciler(cfg types.Config) tags.Reconciler {
	return tags.NewReconciler(cfg.Store.SuggestThreshold, cfg.Store.ReplaceThreshold, app.logger)
}

// runOptions builds the per-request options from cfg and the command's
// interest flags.
func runOptions(cmd *cobra.Command, cfg types.Config) pipeline.Options {
	profile := cfg.Profile
	if v, _ := cmd.Flags().GetStringSlice("topic"); len(v) > 0 {
		profile.Interests.Topics = v
	}
	if v, _ := cmd.Flags().GetStringSlice("author"); len(v) > 0 {
		profile.Interests.Authors = v
	}
	if v, _ := cmd.Flags().GetStringSlice("journal"); len(v) > 0 {
		profile.Interests.Journals = v
	}
	profile.Interests = profile.Interests.OrDefault()

	save, _ := cmd.Flags().GetBool("save")
	return pipeline.Options{
		Profile:         profile,
		Save:            save,
		AllowDuplicates: cfg.Store.AllowDuplicates,
		Build: refstore.BuildOptions{
			Collection:  cfg.Store.Collection,
			ProxyPrefix: cfg.Store.ProxyPrefix,
		},
	}
}

// writeReport prints rep as a table or, with --json, as JSON. With
// --no-annotate and no --save only the records are shown.
func writeReport(cmd *cobra.Command, rep pipeline.Report) error {
	w := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	noAnnotate, _ := cmd.Flags().GetBool("no-annotate")
	save, _ := cmd.Flags().GetBool("save")

	if noAnnotate && !save {
		if asJSON {
			return search.FormatJSON(rep.Output(), w)
		}
		search.FormatTable(rep.Output(), w)
		return nil
	}
	if asJSON {
		return pipeline.FormatJSON(rep, w)
	}
	pipeline.FormatReport(rep, w)
	return nil
}
