// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes records as a CSL-YAML list to w.
func FormatCSL(out Output, w io.Writer) error {
	items := make([]CSLItem, len(out.Records))
	for i, r := range out.Records {
		items[i] = toCSLItem(r, i)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Record to a CSLItem. Records without a DOI get a
// positional ID.
func toCSLItem(r types.Record, pos int) CSLItem {
	item := CSLItem{
		ID:             r.DOI,
		Type:           cslType(r),
		Title:          r.Title,
		Abstract:       r.Snippet,
		ContainerTitle: r.Venue,
		DOI:            r.DOI,
		URL:            r.URL,
	}
	if item.ID == "" {
		item.ID = "item-" + strconv.Itoa(pos+1)
	}

	for _, a := range SplitAuthors(r.Authors) {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if r.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}
	return item
}

func cslType(r types.Record) string {
	if r.Source == types.SourceBioRxiv || IsBioRxivDOI(r.DOI) {
		return "article"
	}
	return "article-journal"
}

// SplitAuthors splits a display-joined author list on ";" when present,
// else on ",".
func SplitAuthors(authors string) []string {
	sep := ","
	if strings.Contains(authors, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(authors, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
