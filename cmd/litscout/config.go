// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// flagKeys maps command-line flags onto configuration keys. A flag that
// the running command does not define is skipped.
var flagKeys = map[string]string{
	"limit":            "search.limit",
	"threshold":        "profile.threshold",
	"store":            "store.backend",
	"collection":       "store.collection",
	"allow-duplicates": "store.allow_duplicates",
	"model":            "annotate.model",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
}

// envOnlyKeys are not present in the default config (they are empty and
// omitted) but may still be set from the environment.
var envOnlyKeys = []string{
	"search.semantic_scholar_api_key",
	"search.ncbi_api_key",
	"search.ncbi_email",
	"search.crossref_mailto",
	"store.zotero.api_key",
	"store.collection",
	"store.proxy_prefix",
}

// loadDefaults seeds v with DefaultConfig so every key is known to viper
// before the config file, environment, and flags are layered on top.
func loadDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("loading default config: %w", err)
	}
	return nil
}

// configureEnv reads LITSCOUT_* variables, with "." in a key becoming "_"
// (LITSCOUT_SEARCH_LIMIT sets search.limit).
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("LITSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("annotate.api_key", "LITSCOUT_ANNOTATE_API_KEY", "ANTHROPIC_API_KEY")
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig decodes the merged viper state into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}
