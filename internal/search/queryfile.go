// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// QueryFile is the on-disk representation of a search query and its results.
// The researcher can save a search to a file and reload it later without
// re-querying APIs.
type QueryFile struct {
	Query   QueryParams    `yaml:"query"`
	Sources []string       `yaml:"sources"`
	Results []types.Record `yaml:"results"`
	Summary QuerySummary   `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text     string `yaml:"text"`
	Limit    int    `yaml:"limit"`
	DateFrom string `yaml:"date_from,omitempty"`
	DateTo   string `yaml:"date_to,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	Warnings          []string  `yaml:"warnings,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

const dateFmt = "2006-01-02"

// WriteQueryFile saves query parameters and results to a YAML file.
func WriteQueryFile(path string, query Query, sources []types.SourceID, out Output) error {
	qf := QueryFile{
		Query: QueryParams{
			Text:  query.Term(),
			Limit: query.Limit,
		},
		Results: out.Records,
		Summary: QuerySummary{
			Total:             len(out.Records),
			DuplicatesRemoved: out.DupsRemoved,
			Timestamp:         time.Now(),
		},
	}
	for _, s := range sources {
		qf.Sources = append(qf.Sources, string(s))
	}
	for _, w := range out.Warnings {
		qf.Summary.Warnings = append(qf.Summary.Warnings, w.String())
	}

	if !query.YearFrom.IsZero() {
		qf.Query.DateFrom = query.YearFrom.Format(dateFmt)
	}
	if !query.YearTo.IsZero() {
		qf.Query.DateTo = query.YearTo.Format(dateFmt)
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query struct.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{Text: p.Text, Limit: p.Limit}
	var err error
	if q.YearFrom, err = ParseDate(p.DateFrom); err != nil {
		return q, fmt.Errorf("invalid date_from: %w", err)
	}
	if q.YearTo, err = ParseDate(p.DateTo); err != nil {
		return q, fmt.Errorf("invalid date_to: %w", err)
	}
	return q, nil
}

// ParseDate accepts "2006-01-02" or a bare year. Empty input is the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateFmt, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD or YYYY", s)
	}
	return t, nil
}
