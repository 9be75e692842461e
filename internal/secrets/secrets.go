// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: semantic-scholar-api-key, ncbi-api-key, ncbi-email,
// anthropic-api-key, zotero-api-key, zotero-library-id.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// Key file names.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	NCBIAPIKey            = "ncbi-api-key"
	NCBIEmail             = "ncbi-email"
	AnthropicAPIKey       = "anthropic-api-key"
	ZoteroAPIKey          = "zotero-api-key"
	ZoteroLibraryID       = "zotero-library-id"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies loaded secrets into cfg. Values already set by the config
// file, environment, or flags take precedence.
func Apply(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.Search.SemanticScholarAPIKey, SemanticScholarAPIKey)
	fill(&cfg.Search.NCBIAPIKey, NCBIAPIKey)
	fill(&cfg.Search.NCBIEmail, NCBIEmail)
	fill(&cfg.Annotate.APIKey, AnthropicAPIKey)
	fill(&cfg.Store.Zotero.APIKey, ZoteroAPIKey)
	fill(&cfg.Store.Zotero.LibraryID, ZoteroLibraryID)
}
