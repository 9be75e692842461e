// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litscout CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/literature-scout/internal/observability"
	"github.com/pdiddy/literature-scout/internal/secrets"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds what PersistentPreRunE builds for the running command.
var app struct {
	cfg     types.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// rootCmd is the base command for the litscout CLI.
var rootCmd = &cobra.Command{
	Use:   "litscout",
	Short: "Find, score, and file research papers",
	Long: `litscout searches Semantic Scholar, PubMed, and Crossref, merges and
deduplicates the results, asks a language model to score each paper against
your research interests, and files the relevant ones in Zotero or a local
SQLite library.

Configuration is read from litscout.yaml (in the working directory or
~/.config/litscout/), LITSCOUT_* environment variables, a .env file, and
key files in .secrets/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("metrics-file")
		if path == "" {
			return nil
		}
		return app.metrics.WriteTextfile(path)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litscout.yaml or ~/.config/litscout/litscout.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	if err := loadDefaults(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litscout")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litscout"))
		}
	}

	configureEnv(viper.GetViper())

	err := viper.MergeInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	case !errors.As(err, &notFound):
		fmt.Fprintln(os.Stderr, "warning: reading config:", err)
	}
}

// setup resolves configuration, secrets, logging, and metrics for the
// command about to run.
func setup(cmd *cobra.Command, args []string) error {
	if err := bindFlags(viper.GetViper(), cmd); err != nil {
		return err
	}
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Logging, os.Stderr)

	s, err := secrets.Load(".secrets/", logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug().Strs("keys", keys).Msg("loaded secrets")
	}
	secrets.Apply(&cfg, s)

	if err := cfg.Validate(); err != nil {
		return err
	}

	app.cfg = cfg
	app.logger = logger
	app.metrics = observability.NewMetrics("litscout")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
