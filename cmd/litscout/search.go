// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-scout/internal/pipeline"
	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search bibliographic sources and score the results",
	Long: `Search queries Semantic Scholar, PubMed, and Crossref for papers matching
the query. Results are merged, deduplicated by DOI or title, truncated to
--limit, and scored 0-3 against your research interests. With --save the
papers at or above --threshold are written to the configured store.

A saved query file (--out) can be re-run with --query-file.`,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("source", nil, "sources to query (semantic_scholar, pubmed, crossref); default from config")
	cmd.Flags().Int("limit", 0, "maximum results per source and after deduplication")
	cmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD or YYYY)")
	cmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD or YYYY)")
	cmd.Flags().String("query-file", "", "re-run the query stored in this file")
	cmd.Flags().Bool("csl", false, "output results as CSL-YAML")
	cmd.Flags().String("out", "", "save the query and its results to this YAML file")
	addRunFlags(cmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := app.cfg

	q, sources, err := searchQuery(cmd, args, cfg)
	if err != nil {
		return err
	}

	p, closeStore, err := newPipeline(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rep, err := p.Search(cmd.Context(), pipeline.SearchRequest{
		Query:   q,
		Sources: sources,
		Options: runOptions(cmd, cfg),
	})
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := search.WriteQueryFile(out, q, sources, rep.Output()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved query to", out)
	}

	if csl, _ := cmd.Flags().GetBool("csl"); csl {
		return search.FormatCSL(rep.Output(), cmd.OutOrStdout())
	}
	return writeReport(cmd, rep)
}

// searchQuery assembles the query from a query file or the command line.
// Flags given alongside --query-file override the stored values.
func searchQuery(cmd *cobra.Command, args []string, cfg types.Config) (search.Query, []types.SourceID, error) {
	var (
		q     search.Query
		names []string
		err   error
	)
	flags := cmd.Flags()

	if file, _ := flags.GetString("query-file"); file != "" {
		qf, err := search.ReadQueryFile(file)
		if err != nil {
			return q, nil, err
		}
		if q, err = qf.Query.ToQuery(); err != nil {
			return q, nil, err
		}
		names = qf.Sources
	}

	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		q.Text = text
	}
	if flags.Changed("limit") || q.Limit == 0 {
		q.Limit = cfg.Search.Limit
	}
	if from, _ := flags.GetString("from"); from != "" {
		if q.YearFrom, err = search.ParseDate(from); err != nil {
			return q, nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to, _ := flags.GetString("to"); to != "" {
		if q.YearTo, err = search.ParseDate(to); err != nil {
			return q, nil, fmt.Errorf("invalid --to: %w", err)
		}
	}

	if v, _ := flags.GetStringSlice("source"); len(v) > 0 {
		names = v
	}
	if len(names) == 0 {
		names = cfg.Search.Sources
	}
	sources := make([]types.SourceID, 0, len(names))
	for _, n := range names {
		id, err := types.ParseSourceID(n)
		if err != nil {
			return q, nil, err
		}
		if id == types.SourceBioRxiv {
			return q, nil, fmt.Errorf("biorxiv does not support free-text search; use lookup with a 10.1101 DOI")
		}
		sources = append(sources, id)
	}
	return q, sources, nil
}
