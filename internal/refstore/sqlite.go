// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteSearchLimit bounds items returned by FindByQuery.
const sqliteSearchLimit = 25

// SQLiteStore is a local library kept in a single SQLite file. Items are
// stored as JSON with the title and DOI indexed alongside.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the library at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			key TEXT PRIMARY KEY,
			item_type TEXT NOT NULL,
			title TEXT NOT NULL,
			doi TEXT,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_title ON items(title COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_items_doi ON items(doi COLLATE NOCASE)`,
		`CREATE TABLE IF NOT EXISTS item_tags (
			item_key TEXT NOT NULL REFERENCES items(key) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (item_key, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// likePattern escapes q for a LIKE ... ESCAPE '\' substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// FindByQuery returns items whose title, DOI, or stored data contain q,
// ignoring ASCII case, oldest first.
func (s *SQLiteStore) FindByQuery(ctx context.Context, q string) ([]Item, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	pattern := likePattern(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data FROM items
		 WHERE title LIKE ? ESCAPE '\' OR doi LIKE ? ESCAPE '\' OR data LIKE ? ESCAPE '\'
		 ORDER BY created_at, key
		 LIMIT ?`,
		pattern, pattern, pattern, sqliteSearchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		var it Item
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, fmt.Errorf("decoding item %s: %w", key, err)
		}
		it.Key = key
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateItem inserts item and its tags in one transaction.
func (s *SQLiteStore) CreateItem(ctx context.Context, item Item) (string, error) {
	item.Key = uuid.NewString()
	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("marshaling item: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (key, item_type, title, doi, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.Key, item.ItemType, item.Title, strings.ToLower(item.DOI), string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting item: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO item_tags (item_key, tag) VALUES (?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing tag insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range item.TagNames() {
		if _, err := stmt.ExecContext(ctx, item.Key, t); err != nil {
			return "", fmt.Errorf("inserting tag %q: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing item: %w", err)
	}
	return item.Key, nil
}

// Tags returns the distinct tags in use, sorted.
func (s *SQLiteStore) Tags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tag FROM item_tags ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
