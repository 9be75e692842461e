// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/internal/refstore"
	"github.com/pdiddy/literature-scout/internal/tags"
	"github.com/pdiddy/literature-scout/pkg/types"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Normalize tags and compare them with the library",
}

var tagsNormalizeCmd = &cobra.Command{
	Use:   "normalize <tag>...",
	Short: "Rewrite prefixed tags (aRT:, aTa:, aTy:, aMe:) to their dash form",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range tags.Normalize(args) {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var tagsCheckCmd = &cobra.Command{
	Use:   "check <tag>...",
	Short: "Reconcile tags against the tags already in the store",
	Long: `Check normalizes the tags, then compares each with the store's existing
tags. Close matches are replaced with the existing tag; weaker matches are
reported as suggestions. The reconciled tags are printed one per line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		if cfg.Store.Backend == types.StoreNone {
			return fmt.Errorf("tags check needs a store backend (set store.backend or --store)")
		}
		store, err := refstore.Open(cfg.Store, httputil.NewClient(cfg.Search.HTTPConfig, cfg.Search.Retry))
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
		}
		defer store.Close()

		out, suggestions := newReconciler(cfg).Reconcile(cmd.Context(), tags.Normalize(args), store)
		for _, t := range out {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		for _, s := range suggestions {
			fmt.Fprintln(cmd.ErrOrStderr(), s.String())
		}
		return nil
	},
}

func init() {
	tagsCheckCmd.Flags().String("store", "", "store backend: zotero or sqlite")

	tagsCmd.AddCommand(tagsNormalizeCmd)
	tagsCmd.AddCommand(tagsCheckCmd)
	rootCmd.AddCommand(tagsCmd)
}
