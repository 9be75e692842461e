// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// zoteroAPIBase is the Zotero Web API root. Package-level var for test substitution.
var zoteroAPIBase = "https://api.zotero.org"

const (
	zoteroAPIVersion = "3"
	zoteroPageSize   = 100

	// zoteroMaxTagPages bounds vocabulary paging.
	zoteroMaxTagPages = 50

	// zoteroSearchLimit bounds items returned by a duplicate lookup.
	zoteroSearchLimit = 25
)

// ZoteroStore is a Zotero user or group library reached over Web API v3.
type ZoteroStore struct {
	LibraryID   string
	LibraryType string
	APIKey      string
	Client      *httputil.Client
}

// NewZoteroStore returns a store for the library in cfg.
func NewZoteroStore(cfg types.ZoteroConfig, client *httputil.Client) *ZoteroStore {
	return &ZoteroStore{
		LibraryID:   cfg.LibraryID,
		LibraryType: cfg.LibraryType,
		APIKey:      cfg.APIKey,
		Client:      client,
	}
}

func (z *ZoteroStore) libraryURL(path string) string {
	prefix := "users"
	if strings.EqualFold(z.LibraryType, "group") {
		prefix = "groups"
	}
	return fmt.Sprintf("%s/%s/%s/%s", zoteroAPIBase, prefix, url.PathEscape(z.LibraryID), path)
}

func (z *ZoteroStore) header() http.Header {
	return http.Header{
		"Zotero-API-Key":     {z.APIKey},
		"Zotero-API-Version": {zoteroAPIVersion},
	}
}

type zoteroItem struct {
	Key  string `json:"key"`
	Data Item   `json:"data"`
}

// FindByQuery runs a quick search over titles, creators, and years.
func (z *ZoteroStore) FindByQuery(ctx context.Context, q string) ([]Item, error) {
	var resp []zoteroItem
	err := z.Client.RequestJSON(ctx, httputil.Request{
		URL:    z.libraryURL("items"),
		Header: z.header(),
		Params: url.Values{
			"q":      {q},
			"qmode":  {"everything"},
			"format": {"json"},
			"limit":  {strconv.Itoa(zoteroSearchLimit)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("Zotero item search: %w", err)
	}

	items := make([]Item, 0, len(resp))
	for _, zi := range resp {
		it := zi.Data
		if it.Key == "" {
			it.Key = zi.Key
		}
		items = append(items, it)
	}
	return items, nil
}

type zoteroWriteFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zoteroWriteResponse struct {
	Success map[string]string             `json:"success"`
	Failed  map[string]zoteroWriteFailure `json:"failed"`
}

// CreateItem posts one item. Creation is never retried: a timed-out
// request may still have been applied.
func (z *ZoteroStore) CreateItem(ctx context.Context, item Item) (string, error) {
	item.Key = ""
	if item.Creators == nil {
		item.Creators = []Creator{}
	}
	body, err := json.Marshal([]Item{item})
	if err != nil {
		return "", fmt.Errorf("marshaling item: %w", err)
	}

	h := z.header()
	h.Set("Zotero-Write-Token", strings.ReplaceAll(uuid.NewString(), "-", ""))

	var resp zoteroWriteResponse
	err = z.Client.RequestJSON(ctx, httputil.Request{
		Method:      http.MethodPost,
		URL:         z.libraryURL("items"),
		Header:      h,
		Body:        body,
		ContentType: "application/json",
		MaxAttempts: 1,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("Zotero create item: %w", err)
	}
	if f, ok := resp.Failed["0"]; ok {
		return "", fmt.Errorf("Zotero rejected item %q: HTTP %d: %s", item.Title, f.Code, f.Message)
	}
	key, ok := resp.Success["0"]
	if !ok {
		return "", fmt.Errorf("Zotero create item: %w: no key in response", httputil.ErrMalformedResponse)
	}
	return key, nil
}

type zoteroTag struct {
	Tag string `json:"tag"`
}

// Tags pages through the library's tag list.
func (z *ZoteroStore) Tags(ctx context.Context) ([]string, error) {
	var out []string
	for page := 0; page < zoteroMaxTagPages; page++ {
		var batch []zoteroTag
		err := z.Client.RequestJSON(ctx, httputil.Request{
			URL:    z.libraryURL("tags"),
			Header: z.header(),
			Params: url.Values{
				"format": {"json"},
				"limit":  {strconv.Itoa(zoteroPageSize)},
				"start":  {strconv.Itoa(page * zoteroPageSize)},
			},
		}, &batch)
		if err != nil {
			return nil, fmt.Errorf("Zotero tags: %w", err)
		}
		for _, t := range batch {
			if t.Tag != "" {
				out = append(out, t.Tag)
			}
		}
		if len(batch) < zoteroPageSize {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (z *ZoteroStore) Close() error { return nil }
