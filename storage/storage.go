package storage

import (
	"context"
	"time"

	"mediawatch/types"
)

// Store is the persistence boundary for the pipeline: classified items,
// daily batches, and the fingerprint index used for deduplication. DB
// implements it over SQLite; Memory implements it in-process for tests
// and demo runs.
type Store interface {
	// Fingerprint index
	Seen(ctx context.Context, fingerprint string, since time.Time) (bool, error)
	Register(ctx context.Context, fingerprint string, publishedAt time.Time) error

	// Batch and item records
	SaveBatch(ctx context.Context, batch *types.DailyBatch) error
	GetBatch(ctx context.Context, date string) (*types.DailyBatch, error)
	GetItem(ctx context.Context, fingerprint string) (*types.ClassifiedItem, error)
	ListBatches(ctx context.Context, limit int) ([]types.BatchSummary, error)
	Trends(ctx context.Context, days int) ([]types.BatchSummary, error)
	ItemsByDateRange(ctx context.Context, from, to string) ([]*types.ClassifiedItem, error)

	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)
