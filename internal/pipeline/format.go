// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/literature-scout/internal/search"
)

// Output returns the report's records in the search output shape, for the
// record-only formats (CSL-YAML, query files).
func (r Report) Output() search.Output {
	return search.Output{Records: r.Records(), DupsRemoved: r.DupsRemoved, Warnings: r.Warnings}
}

// FormatReport writes scored candidates as a table, followed by per-row
// warnings, tag suggestions, and a summary line.
func FormatReport(r Report, w io.Writer) {
	if len(r.Outcomes) == 0 {
		fmt.Fprintln(w, "No results found.")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		return
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-60s  %-4s  %-28s  %-16s  %s\n",
		"Rank", "Score", "Title", "Year", "DOI", "Source", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 136))

	for i, o := range r.Outcomes {
		c := o.Candidate
		year := ""
		if c.Year > 0 {
			year = fmt.Sprintf("%d", c.Year)
		}
		mark := " "
		if o.Eligible {
			mark = "*"
		}
		fmt.Fprintf(w, "%-4d  %d%-4s  %-60s  %-4s  %-28s  %-16s  %s\n",
			i+1, c.Score, mark, clip(c.Title, 60), year, clip(c.DOI, 28), c.Source, o.Status)
	}

	fmt.Fprintln(w)
	for i, o := range r.Outcomes {
		for _, s := range o.Suggestions {
			fmt.Fprintf(w, "#%d tag: %s\n", i+1, s)
		}
		for _, msg := range o.Warnings {
			fmt.Fprintf(w, "#%d warning: %s\n", i+1, msg)
		}
	}

	fmt.Fprintf(w, "%d results, %d eligible (*), %d saved", len(r.Outcomes), r.Eligible(), r.Count(StatusSaved))
	if n := r.Count(StatusDuplicate); n > 0 {
		fmt.Fprintf(w, ", %d already in library", n)
	}
	if r.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", r.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(r Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
