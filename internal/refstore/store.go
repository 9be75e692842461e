// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refstore writes accepted papers into the researcher's reference
// library and reads back what is already there: items for the duplicate
// check and the tag vocabulary for reconciliation.
package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// Item types written to the store.
const (
	ItemJournalArticle = "journalArticle"
	ItemPreprint       = "preprint"
)

// Creator is one author of an item. Names that do not split into a
// first and last part are kept whole in Name.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Tag is one item tag.
type Tag struct {
	Tag string `json:"tag"`
}

// Item is a library entry in the Zotero item schema. Only fields valid for
// the item type are set; the rest stay empty and are omitted on the wire.
type Item struct {
	Key              string    `json:"key,omitempty"`
	ItemType         string    `json:"itemType"`
	Title            string    `json:"title"`
	Creators         []Creator `json:"creators"`
	AbstractNote     string    `json:"abstractNote,omitempty"`
	URL              string    `json:"url,omitempty"`
	DOI              string    `json:"DOI,omitempty"`
	Date             string    `json:"date,omitempty"`
	PublicationTitle string    `json:"publicationTitle,omitempty"`
	Repository       string    `json:"repository,omitempty"`
	Archive          string    `json:"archive,omitempty"`
	ArchiveLocation  string    `json:"archiveLocation,omitempty"`
	Volume           string    `json:"volume,omitempty"`
	Issue            string    `json:"issue,omitempty"`
	Pages            string    `json:"pages,omitempty"`
	Extra            string    `json:"extra,omitempty"`
	Tags             []Tag     `json:"tags,omitempty"`
	Collections      []string  `json:"collections,omitempty"`
}

// TagNames returns the item's tags as plain strings.
func (it Item) TagNames() []string {
	out := make([]string, 0, len(it.Tags))
	for _, t := range it.Tags {
		out = append(out, t.Tag)
	}
	return out
}

// Store is a reference library.
type Store interface {
	// FindByQuery returns items whose fields match q.
	FindByQuery(ctx context.Context, q string) ([]Item, error)

	// CreateItem adds item and returns its key. It is called at most once
	// per accepted paper.
	CreateItem(ctx context.Context, item Item) (string, error)

	// Tags returns every tag in use in the library.
	Tags(ctx context.Context) ([]string, error)

	Close() error
}

// Open returns the store selected by cfg.Backend, or nil for "none".
func Open(cfg types.StoreConfig, client *httputil.Client) (Store, error) {
	switch cfg.Backend {
	case types.StoreNone, "":
		return nil, nil
	case types.StoreZotero:
		return NewZoteroStore(cfg.Zotero, client), nil
	case types.StoreSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// IsDuplicate reports whether the library already holds the paper. It
// first looks for an item whose title equals title ignoring case, then for
// any item whose stored data contains doi.
func IsDuplicate(ctx context.Context, s Store, title, doi string) (bool, error) {
	title = strings.TrimSpace(title)
	if title != "" {
		items, err := s.FindByQuery(ctx, title)
		if err != nil {
			return false, fmt.Errorf("searching library by title: %w", err)
		}
		for _, it := range items {
			if strings.EqualFold(strings.TrimSpace(it.Title), title) {
				return true, nil
			}
		}
	}

	doi = strings.ToLower(strings.TrimSpace(doi))
	if doi == "" {
		return false, nil
	}
	items, err := s.FindByQuery(ctx, doi)
	if err != nil {
		return false, fmt.Errorf("searching library by DOI: %w", err)
	}
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), doi) {
			return true, nil
		}
	}
	return false, nil
}
