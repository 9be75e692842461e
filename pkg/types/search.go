// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the literature-scout pipeline:
// normalized bibliographic records, scored candidates, the per-request interest
// profile, and configuration for every stage.
package types

import (
	"fmt"
	"strings"
)

// SourceID names a bibliographic source adapter.
type SourceID string

const (
	SourceSemanticScholar SourceID = "semantic_scholar"
	SourcePubMed          SourceID = "pubmed"
	SourceCrossref        SourceID = "crossref"
	SourceBioRxiv         SourceID = "biorxiv"
)

// SearchSources lists the sources that support free-text search, in the
// default query order.
var SearchSources = []SourceID{SourceSemanticScholar, SourcePubMed, SourceCrossref}

// ParseSourceID maps a user-supplied source name to a SourceID. Short
// aliases ("s2", "ss") are accepted for Semantic Scholar.
func ParseSourceID(name string) (SourceID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "semantic_scholar", "semanticscholar", "s2", "ss":
		return SourceSemanticScholar, nil
	case "pubmed":
		return SourcePubMed, nil
	case "crossref":
		return SourceCrossref, nil
	case "biorxiv":
		return SourceBioRxiv, nil
	default:
		return "", fmt.Errorf("unknown source %q (want semantic_scholar, pubmed, crossref, or biorxiv)", name)
	}
}

// Record is the source-independent shape every adapter produces. Empty
// strings mean "unknown"; Year 0 means the publication year is unknown.
type Record struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// URL is the landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Authors is the display-joined author list.
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Snippet is the abstract or an excerpt, stripped of markup.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// PDFURL points at an open-access PDF when the source knows one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// DOI is stored without any resolver prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`
	Year  int    `json:"year,omitempty" yaml:"year,omitempty"`

	// Source identifies which adapter produced the record.
	Source SourceID `json:"source,omitempty" yaml:"source,omitempty"`

	// Extras carries source-specific metadata (citation count, publication
	// date, volume, category). Nothing downstream requires any key.
	Extras map[string]any `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// IsEmpty reports whether the record has no title, URL, or DOI. Such
// records carry nothing a reader could act on.
func (r Record) IsEmpty() bool {
	return strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.DOI) == ""
}

// Extra returns the string form of an extras entry, or "" when absent.
func (r Record) Extra(key string) string {
	v, ok := r.Extras[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// SetExtra stores v under key, allocating the map on first use. Empty
// strings and nil values are not stored.
func (r *Record) SetExtra(key string, v any) {
	if v == nil {
		return
	}
	if s, ok := v.(string); ok && s == "" {
		return
	}
	if r.Extras == nil {
		r.Extras = make(map[string]any)
	}
	r.Extras[key] = v
}
