// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package store persists synced salon data as JSON documents in a local
// DuckDB database. Documents live in one table keyed by (collection, doc_id)
// and are written with upsert semantics: an insert records the creation
// time, an update preserves it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/avolkov/salonsync/internal/logging"
	"github.com/avolkov/salonsync/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR NOT NULL,
    doc_id     VARCHAR NOT NULL,
    doc        JSON    NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (collection, doc_id)
)`

// Options configures a document store instance.
type Options struct {
	// Dir is the directory holding database files, created if missing.
	Dir string

	// Name is the database file name without extension, typically the
	// profile slug.
	Name string

	// MaxMemory caps DuckDB's memory usage, e.g. "512MB".
	MaxMemory string

	// Timezone is the IANA zone whose UTC offset timestamps are shifted by
	// before storage. Unknown or empty zones fall back to UTC with a
	// warning.
	Timezone string
}

// Store is a DuckDB-backed document store. Safe for concurrent use. The
// caller owns the lifecycle: New opens, Close releases.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New opens (creating if needed) the database file for the given options and
// ensures the schema exists.
func New(opts Options) (*Store, error) {
	if opts.Name == "" {
		return nil, errors.New("store: database name is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", opts.Dir, err)
	}

	path := filepath.Join(opts.Dir, opts.Name+".duckdb")
	connStr := fmt.Sprintf("%s?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false", path)
	if opts.MaxMemory != "" {
		connStr += "&max_memory=" + opts.MaxMemory
	}

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	loc := time.UTC
	if opts.Timezone != "" {
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			logging.Warn().Str("timezone", opts.Timezone).Msg("Unknown timezone, falling back to UTC")
			loc = time.UTC
		}
	}

	return &Store{db: db, loc: loc}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AdjustForStorage shifts a timestamp by the configured timezone's current
// UTC offset so stored wall-clock values read in local salon time.
func (s *Store) AdjustForStorage(t time.Time) time.Time {
	_, offset := t.In(s.loc).Zone()
	return t.UTC().Add(time.Duration(offset) * time.Second)
}

// Upsert writes a document, replacing the stored body when the id already
// exists in the collection. created_at survives updates.
func (s *Store) Upsert(ctx context.Context, collection, docID string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, docID, err)
	}

	now := s.AdjustForStorage(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		collection, docID, string(body), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", collection, docID, err)
	}

	metrics.DocumentsUpserted.WithLabelValues(collection).Inc()
	return nil
}

// Merge sets the given top-level fields on a document, inserting it when
// absent. Fields not named keep their stored values.
func (s *Store) Merge(ctx context.Context, collection, docID string, fields map[string]any) error {
	existing, err := s.Get(ctx, collection, docID)
	if err != nil {
		return err
	}

	doc := existing
	if doc == nil {
		doc = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		doc[k] = v
	}
	return s.Upsert(ctx, collection, docID, doc)
}

// Get returns a document by id, or (nil, nil) when it does not exist.
func (s *Store) Get(ctx context.Context, collection, docID string) (map[string]any, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND doc_id = ?`,
		collection, docID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", collection, docID, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, docID, err)
	}
	return doc, nil
}

// List returns all documents in a collection, ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? ORDER BY doc_id`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []map[string]any
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document in %s: %w", collection, err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document in %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return n, nil
}
