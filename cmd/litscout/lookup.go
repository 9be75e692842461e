// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-scout/internal/pipeline"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <doi-or-url>",
	Short: "Resolve one paper from a DOI or URL and score it",
	Long: `Lookup resolves a single paper. bioRxiv DOIs (10.1101/...) are looked up on
bioRxiv first and fall back to Crossref; other DOIs go to Crossref. A URL is
searched for an embedded DOI; when none is found and the URL serves a PDF,
the title is read from the PDF text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		p, closeStore, err := newPipeline(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		rep, err := p.Lookup(cmd.Context(), pipeline.LookupRequest{
			Identifier: strings.TrimSpace(args[0]),
			Options:    runOptions(cmd, cfg),
		})
		if err != nil {
			return err
		}
		return writeReport(cmd, rep)
	},
}

func init() {
	addRunFlags(lookupCmd)
	rootCmd.AddCommand(lookupCmd)
}
