// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/pkg/types"
)

func newSearchCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "search"}
	addSearchFlags(cmd)
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	return cmd
}

func TestSearchQueryFromArgs(t *testing.T) {
	cmd := newSearchCmd(t, map[string]string{"from": "2020", "to": "2022-06-30", "source": "s2,crossref"})

	q, sources, err := searchQuery(cmd, []string{"protein", "folding"}, types.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "protein folding", q.Text)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), q.YearFrom)
	assert.Equal(t, 2022, q.YearTo.Year())
	assert.Equal(t, []types.SourceID{types.SourceSemanticScholar, types.SourceCrossref}, sources)
}

func TestSearchQueryDefaultSources(t *testing.T) {
	cmd := newSearchCmd(t, nil)

	_, sources, err := searchQuery(cmd, []string{"x"}, types.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []types.SourceID{types.SourceSemanticScholar, types.SourcePubMed}, sources)
}

func TestSearchQueryRejectsBadInput(t *testing.T) {
	for name, flags := range map[string]map[string]string{
		"unknown source": {"source": "arxiv"},
		"biorxiv search": {"source": "biorxiv"},
		"bad date":       {"from": "last year"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := searchQuery(newSearchCmd(t, flags), []string{"x"}, types.DefaultConfig())
			assert.Error(t, err)
		})
	}
}

func TestSearchQueryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	stored := search.Query{Text: "enzyme kinetics", Limit: 4, YearFrom: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, search.WriteQueryFile(path, stored, []types.SourceID{types.SourcePubMed}, search.Output{}))

	q, sources, err := searchQuery(newSearchCmd(t, map[string]string{"query-file": path}), nil, types.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "enzyme kinetics", q.Text)
	assert.Equal(t, 4, q.Limit)
	assert.Equal(t, 2019, q.YearFrom.Year())
	assert.Equal(t, []types.SourceID{types.SourcePubMed}, sources)

	// Arguments replace the stored text.
	q, _, err = searchQuery(newSearchCmd(t, map[string]string{"query-file": path}), []string{"kinase"}, types.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "kinase", q.Text)
}

func TestRunOptionsInterestFlags(t *testing.T) {
	cmd := newSearchCmd(t, map[string]string{"topic": "catalysis", "save": "true"})
	cfg := types.DefaultConfig()
	cfg.Profile.Interests.Journals = []string{"JACS"}
	cfg.Store.Collection = "COLL"

	opts := runOptions(cmd, cfg)
	assert.Equal(t, []string{"catalysis"}, opts.Profile.Interests.Topics)
	assert.Equal(t, []string{"JACS"}, opts.Profile.Interests.Journals)
	assert.True(t, opts.Save)
	assert.Equal(t, "COLL", opts.Build.Collection)
	assert.Equal(t, 2, opts.Profile.Threshold)
}

func TestRunOptionsDefaultInterests(t *testing.T) {
	opts := runOptions(newSearchCmd(t, nil), types.DefaultConfig())
	assert.Equal(t, types.DefaultInterests.Topics, opts.Profile.Interests.Topics)
}
