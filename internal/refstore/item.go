// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refstore

import (
	"fmt"
	"strings"

	"github.com/pdiddy/literature-scout/internal/search"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// preprintPrefixes mark DOIs registered by preprint servers.
var preprintPrefixes = []string{"10.1101/", "10.48550/arxiv", "10.20944/preprints"}

// Enrichment is metadata fetched for the chosen candidate only. Either
// record may be empty.
type Enrichment struct {
	Crossref types.Record
	BioRxiv  types.Record
}

// BuildOptions controls library-specific parts of a new item.
type BuildOptions struct {
	Collection  string
	ProxyPrefix string
}

// IsPreprintDOI reports whether doi belongs to a preprint server.
func IsPreprintDOI(doi string) bool {
	doi = strings.ToLower(doi)
	for _, p := range preprintPrefixes {
		if strings.HasPrefix(doi, p) {
			return true
		}
	}
	return false
}

// BuildItem assembles the library item for an accepted candidate. The
// candidate's own fields win; enrichment fills what the source left out.
func BuildItem(c types.ScoredCandidate, e Enrichment, opts BuildOptions) Item {
	item := Item{
		ItemType: ItemJournalArticle,
		Title:    c.Title,
		Creators: ParseCreators(c.Authors),
		DOI:      c.DOI,
	}
	if opts.Collection != "" {
		item.Collections = []string{opts.Collection}
	}

	item.AbstractNote = c.AIAbstract
	if item.AbstractNote == "" {
		item.AbstractNote = c.Snippet
	}

	item.URL = c.URL
	if item.URL == "" && c.DOI != "" {
		item.URL = "https://doi.org/" + c.DOI
	}
	if opts.ProxyPrefix != "" {
		target := item.URL
		if c.DOI != "" {
			target = "https://doi.org/" + c.DOI
		}
		if target != "" {
			item.URL = opts.ProxyPrefix + target
		}
	}

	year := firstInt(c.Year, e.Crossref.Year, e.BioRxiv.Year)
	item.Date = firstString(
		c.Extra("publicationDate"),
		e.BioRxiv.Extra("publicationDate"),
		e.Crossref.Extra("publicationDate"),
	)
	if item.Date == "" && year > 0 {
		item.Date = fmt.Sprint(year)
	}

	journal := firstString(e.Crossref.Venue, c.Venue, e.BioRxiv.Venue)

	var extra []string
	if n := c.Extra("citationCount"); n != "" {
		extra = append(extra, "Citations: "+n)
	}
	if pt := c.Extra("publicationTypes"); pt != "" {
		extra = append(extra, "Publication Types: "+pt)
	}
	if cat := e.BioRxiv.Extra("category"); cat != "" {
		extra = append(extra, "bioRxiv Category: "+cat)
	}
	if v := e.BioRxiv.Extra("version"); v != "" {
		extra = append(extra, "Version: "+v)
	}
	if strings.EqualFold(e.BioRxiv.Extra("server"), "biorxiv") {
		item.ItemType = ItemPreprint
		item.Archive = "bioRxiv"
		if d := e.BioRxiv.Extra("publicationDate"); d != "" {
			item.ArchiveLocation = "Submitted: " + d
		}
	}
	if IsPreprintDOI(c.DOI) {
		item.ItemType = ItemPreprint
	}

	if item.ItemType == ItemPreprint {
		item.Repository = journal
	} else {
		// A Crossref-sourced candidate carries these itself.
		meta := e.Crossref
		if meta.IsEmpty() {
			meta = c.Record
		}
		item.PublicationTitle = journal
		item.Volume = meta.Extra("volume")
		item.Issue = meta.Extra("issue")
		item.Pages = meta.Extra("pages")
	}

	if u := e.Crossref.URL; u != "" && u != item.URL {
		extra = append(extra, "Publisher URL: "+u)
	}
	item.Extra = strings.Join(extra, "\n")

	for _, t := range c.Tags {
		if t = strings.TrimSpace(t); t != "" {
			item.Tags = append(item.Tags, Tag{Tag: t})
		}
	}
	return item
}

// ParseCreators splits a display author list into creators. The last
// space-separated token of each name is the last name.
func ParseCreators(authors string) []Creator {
	names := search.SplitAuthors(authors)
	out := make([]Creator, 0, len(names))
	for _, name := range names {
		parts := strings.Fields(name)
		if len(parts) < 2 {
			out = append(out, Creator{CreatorType: "author", Name: name})
			continue
		}
		out = append(out, Creator{
			CreatorType: "author",
			FirstName:   strings.Join(parts[:len(parts)-1], " "),
			LastName:    parts[len(parts)-1],
		})
	}
	return out
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
