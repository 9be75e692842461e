// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/pkg/types"
)

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	q := Query{Text: " folding ", Limit: 5, YearFrom: year(2020), YearTo: year(2022)}
	out := Output{
		Records:     []types.Record{{Title: "A", DOI: "10.1/a", Source: types.SourceCrossref}},
		DupsRemoved: 2,
		Warnings:    []Warning{{Source: types.SourcePubMed, Err: errors.New("timeout")}},
	}

	require.NoError(t, WriteQueryFile(path, q, []types.SourceID{types.SourceCrossref, types.SourcePubMed}, out))

	qf, err := ReadQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, "folding", qf.Query.Text)
	assert.Equal(t, "2020-01-01", qf.Query.DateFrom)
	assert.Equal(t, []string{"crossref", "pubmed"}, qf.Sources)
	assert.Equal(t, 1, qf.Summary.Total)
	assert.Equal(t, 2, qf.Summary.DuplicatesRemoved)
	assert.Equal(t, []string{"pubmed: timeout"}, qf.Summary.Warnings)
	require.Len(t, qf.Results, 1)
	assert.Equal(t, "10.1/a", qf.Results[0].DOI)

	back, err := qf.Query.ToQuery()
	require.NoError(t, err)
	assert.Equal(t, 2020, back.YearFrom.Year())
	assert.Equal(t, 2022, back.YearTo.Year())
}

func TestReadQueryFileMissing(t *testing.T) {
	_, err := ReadQueryFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-05-03")
	require.NoError(t, err)
	assert.Equal(t, 5, int(d.Month()))

	d, err = ParseDate("2019")
	require.NoError(t, err)
	assert.Equal(t, 2019, d.Year())

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("May 2020")
	assert.Error(t, err)
}
