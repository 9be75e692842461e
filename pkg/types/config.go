package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single request attempt (default 40s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "literature-scout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls the shared retry policy for upstream APIs.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first (default 4).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"min=1,max=10"`

	// BaseDelay is the wait after the first failed attempt (default 80ms).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`

	// MaxDelay caps the doubled delay (default 3s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Limit is the maximum number of records requested per source and kept
	// after deduplication (default 10).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit" validate:"min=1,max=100"`

	// Sources lists the adapters queried by default.
	Sources []string `json:"sources" yaml:"sources" mapstructure:"sources" validate:"dive,oneof=semantic_scholar s2 ss pubmed crossref"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// NCBIAPIKey and NCBIEmail identify the caller to NCBI E-utilities.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`
	NCBIEmail  string `json:"ncbi_email,omitempty" yaml:"ncbi_email,omitempty" mapstructure:"ncbi_email" validate:"omitempty,email"`

	// CrossrefMailto joins the Crossref polite pool when set.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty" mapstructure:"crossref_mailto" validate:"omitempty,email"`

	// RateLimits maps a source name to requests per second. Zero or absent
	// means unlimited.
	RateLimits map[string]float64 `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty" mapstructure:"rate_limits" validate:"dive,gte=0"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the response length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
}

// AnnotateConfig holds settings for the scoring oracle.
type AnnotateConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled turns the oracle on. When off every candidate scores 0.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ExcerptChars bounds the PDF text handed to the oracle (default 8000).
	ExcerptChars int `json:"excerpt_chars" yaml:"excerpt_chars" mapstructure:"excerpt_chars" validate:"gte=0"`
}

// StoreBackend selects the reference store implementation.
type StoreBackend string

const (
	StoreNone   StoreBackend = "none"
	StoreZotero StoreBackend = "zotero"
	StoreSQLite StoreBackend = "sqlite"
)

// ZoteroConfig identifies a Zotero library.
type ZoteroConfig struct {
	LibraryID string `json:"library_id" yaml:"library_id" mapstructure:"library_id"`

	// LibraryType is "user" or "group".
	LibraryType string `json:"library_type" yaml:"library_type" mapstructure:"library_type" validate:"omitempty,oneof=user group"`

	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// StoreConfig holds settings for the reference store.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" yaml:"backend" mapstructure:"backend" validate:"oneof=none zotero sqlite"`

	Zotero ZoteroConfig `json:"zotero" yaml:"zotero" mapstructure:"zotero"`

	// SQLitePath is the local library database file.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" mapstructure:"sqlite_path"`

	// Collection files new items into a collection when set.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty" mapstructure:"collection"`

	// ProxyPrefix is prepended to item URLs (e.g. an institutional EZproxy).
	ProxyPrefix string `json:"proxy_prefix,omitempty" yaml:"proxy_prefix,omitempty" mapstructure:"proxy_prefix"`

	// AllowDuplicates skips the duplicate check before creating items.
	AllowDuplicates bool `json:"allow_duplicates" yaml:"allow_duplicates" mapstructure:"allow_duplicates"`

	// SuggestThreshold and ReplaceThreshold bound tag similarity: at or
	// above Suggest a suggestion is emitted, at or above Replace the
	// existing tag is substituted.
	SuggestThreshold float64 `json:"suggest_threshold" yaml:"suggest_threshold" mapstructure:"suggest_threshold" validate:"gte=0,lte=1"`
	ReplaceThreshold float64 `json:"replace_threshold" yaml:"replace_threshold" mapstructure:"replace_threshold" validate:"gte=0,lte=1,gtefield=SuggestThreshold"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// Config groups every stage configuration.
type Config struct {
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Annotate AnnotateConfig `json:"annotate" yaml:"annotate" mapstructure:"annotate"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Profile  Profile        `json:"profile" yaml:"profile" mapstructure:"profile"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   40 * time.Second,
				UserAgent: "literature-scout/0.1",
			},
			Retry: RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   80 * time.Millisecond,
				MaxDelay:    3 * time.Second,
			},
			Limit:   10,
			Sources: []string{string(SourceSemanticScholar), string(SourcePubMed)},
		},
		Annotate: AnnotateConfig{
			AIConfig: AIConfig{
				Model:     "claude-sonnet-4-5-20250929",
				MaxTokens: 1024,
			},
			Enabled:      true,
			ExcerptChars: 8000,
		},
		Store: StoreConfig{
			Backend:          StoreNone,
			SQLitePath:       "library.db",
			Zotero:           ZoteroConfig{LibraryType: "user"},
			SuggestThreshold: 0.70,
			ReplaceThreshold: 0.85,
		},
		Profile: Profile{Threshold: 2},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field constraints. The error
// lists every offending field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	if c.Store.Backend == StoreZotero && (c.Store.Zotero.LibraryID == "" || c.Store.Zotero.APIKey == "") {
		return fmt.Errorf("invalid configuration: zotero store requires library_id and api_key")
	}
	return nil
}
