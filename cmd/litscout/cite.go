// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-scout/internal/pipeline"
)

var citeCmd = &cobra.Command{
	Use:   "cite [file]",
	Short: "Resolve pasted citations and score them",
	Long: `Cite reads a reference list from a file, or from stdin when the file is "-"
or omitted. Each DOI in the text is resolved directly; references without a
DOI are matched by title on Semantic Scholar, then PubMed. References that
cannot be resolved are reported as warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readCitations(cmd, args)
		if err != nil {
			return err
		}

		cfg := app.cfg
		p, closeStore, err := newPipeline(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		rep, err := p.Cite(cmd.Context(), pipeline.CiteRequest{
			Text:    text,
			Options: runOptions(cmd, cfg),
		})
		if err != nil {
			return err
		}
		return writeReport(cmd, rep)
	},
}

func init() {
	addRunFlags(citeCmd)
	rootCmd.AddCommand(citeCmd)
}

func readCitations(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading citations: %w", err)
	}
	return string(data), nil
}
