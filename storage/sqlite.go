// Package storage persists classified items, daily batches and the
// deduplication fingerprint index in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediawatch/types"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Schema is the canonical schema. Applied on Open; all statements are
// idempotent. Timestamps are stored as unix nanoseconds so range queries
// compare correctly; batch dates are YYYY-MM-DD strings.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
	fingerprint TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT,
	source TEXT,
	published_at INTEGER NOT NULL,
	canonical_url TEXT,
	timestamp_inferred INTEGER NOT NULL DEFAULT 0,
	themes TEXT,
	polarity TEXT NOT NULL DEFAULT 'neutral',
	confidence REAL NOT NULL DEFAULT 0,
	batch_date TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_batch_date ON items(batch_date);
CREATE INDEX IF NOT EXISTS idx_items_published ON items(published_at);

CREATE TABLE IF NOT EXISTS fingerprints (
	fingerprint TEXT PRIMARY KEY,
	published_at INTEGER NOT NULL,
	registered_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fingerprints_registered ON fingerprints(registered_at);

CREATE TABLE IF NOT EXISTS batches (
	date TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	item_count INTEGER NOT NULL,
	duplicates INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	risks INTEGER NOT NULL DEFAULT 0,
	opportunities INTEGER NOT NULL DEFAULT 0,
	neutral INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
`

// DB is a SQLite-backed store. Safe for concurrent use; SQLite serializes
// writers and the WAL journal keeps readers unblocked.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Parent directories are created. ":memory:" is supported for tests;
// it is pinned to a single connection because every new connection to
// ":memory:" would otherwise see its own empty database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Seen reports whether a fingerprint was registered at or after `since`.
// Older registrations are outside the dedup window and count as unseen.
func (s *DB) Seen(ctx context.Context, fingerprint string, since time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM fingerprints WHERE fingerprint = ? AND registered_at >= ?`,
		fingerprint, since.UnixNano(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: seen lookup: %w", err)
	}
	return true, nil
}

// Register records a fingerprint observation. Re-registering slides the
// window forward (same behaviour as the bloom filter TTL reset on add);
// registering an already-current fingerprint is a no-op in effect.
func (s *DB) Register(ctx context.Context, fingerprint string, publishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (fingerprint, published_at, registered_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET registered_at = excluded.registered_at`,
		fingerprint, publishedAt.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storage: register fingerprint: %w", err)
	}
	return nil
}

// SaveBatch writes a finalized batch in one transaction. Re-saving the same
// date replaces the previous result entirely, so re-running a day is safe.
// An item resurfacing after its dedup window lapsed moves to the new date.
func (s *DB) SaveBatch(ctx context.Context, batch *types.DailyBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE batch_date = ?`, batch.Date); err != nil {
		return fmt.Errorf("storage: clear batch items: %w", err)
	}

	for _, it := range batch.Items {
		themes, err := json.Marshal(it.Themes)
		if err != nil {
			return fmt.Errorf("storage: encode themes for %s: %w", it.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO items
			 (fingerprint, title, body, source, published_at, canonical_url,
			  timestamp_inferred, themes, polarity, confidence, batch_date, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Title, it.Body, it.Source, it.PublishedAt.UnixNano(), it.CanonicalURL,
			boolToInt(it.TimestampInferred), string(themes), string(it.Polarity), it.Confidence,
			batch.Date, batch.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("storage: insert item %s: %w", it.ID, err)
		}
	}

	sum := batch.Summary()
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO batches
		 (date, run_id, item_count, duplicates, skipped, risks, opportunities, neutral, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.Date, batch.RunID, sum.ItemCount, sum.Duplicates, sum.Skipped,
		sum.Risks, sum.Opportunities, sum.Neutral, batch.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storage: insert batch row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit batch: %w", err)
	}
	return nil
}

// GetItem fetches one classified item by fingerprint.
func (s *DB) GetItem(ctx context.Context, fingerprint string) (*types.ClassifiedItem, error) {
	row := s.db.QueryRowContext(ctx, selectItems+` WHERE fingerprint = ?`, fingerprint)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get item: %w", err)
	}
	return it, nil
}

// GetBatch fetches the batch for a date with its items in published order.
func (s *DB) GetBatch(ctx context.Context, date string) (*types.DailyBatch, error) {
	batch := &types.DailyBatch{Date: date}
	var createdAt int64
	var sum types.BatchSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, duplicates, skipped, created_at FROM batches WHERE date = ?`, date,
	).Scan(&batch.RunID, &sum.Duplicates, &sum.Skipped, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get batch: %w", err)
	}
	batch.Duplicates = sum.Duplicates
	batch.Skipped = sum.Skipped
	batch.CreatedAt = time.Unix(0, createdAt).UTC()

	rows, err := s.db.QueryContext(ctx,
		selectItems+` WHERE batch_date = ? ORDER BY published_at ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("storage: get batch items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan batch item: %w", err)
		}
		batch.Items = append(batch.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate batch items: %w", err)
	}
	return batch, nil
}

// ListBatches returns the most recent batch summaries, newest first.
func (s *DB) ListBatches(ctx context.Context, limit int) ([]types.BatchSummary, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		selectBatchSummary+` ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list batches: %w", err)
	}
	return collectSummaries(rows)
}

// Trends returns per-day summaries for the last `days` days, oldest first,
// for trend charts and the trends endpoint.
func (s *DB) Trends(ctx context.Context, days int) ([]types.BatchSummary, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx,
		selectBatchSummary+` WHERE date >= ? ORDER BY date ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("storage: trends: %w", err)
	}
	return collectSummaries(rows)
}

// ItemsByDateRange returns items whose batch date falls in [from, to],
// ordered by publication time.
func (s *DB) ItemsByDateRange(ctx context.Context, from, to string) ([]*types.ClassifiedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectItems+` WHERE batch_date >= ? AND batch_date <= ? ORDER BY published_at ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("storage: items by date range: %w", err)
	}
	defer rows.Close()

	var items []*types.ClassifiedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const selectItems = `SELECT fingerprint, title, body, source, published_at,
	canonical_url, timestamp_inferred, themes, polarity, confidence FROM items`

const selectBatchSummary = `SELECT date, run_id, item_count, duplicates,
	skipped, risks, opportunities, neutral, created_at FROM batches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*types.ClassifiedItem, error) {
	var it types.ClassifiedItem
	var publishedAt, inferred int64
	var themes, polarity string
	err := row.Scan(&it.ID, &it.Title, &it.Body, &it.Source, &publishedAt,
		&it.CanonicalURL, &inferred, &themes, &polarity, &it.Confidence)
	if err != nil {
		return nil, err
	}
	it.PublishedAt = time.Unix(0, publishedAt).UTC()
	it.TimestampInferred = inferred != 0
	it.Polarity = types.Polarity(polarity)
	if themes != "" {
		if err := json.Unmarshal([]byte(themes), &it.Themes); err != nil {
			return nil, fmt.Errorf("decode themes: %w", err)
		}
	}
	return &it, nil
}

func collectSummaries(rows *sql.Rows) ([]types.BatchSummary, error) {
	defer rows.Close()
	var out []types.BatchSummary
	for rows.Next() {
		var s types.BatchSummary
		var createdAt int64
		err := rows.Scan(&s.Date, &s.RunID, &s.ItemCount, &s.Duplicates,
			&s.Skipped, &s.Risks, &s.Opportunities, &s.Neutral, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("storage: scan batch summary: %w", err)
		}
		s.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
