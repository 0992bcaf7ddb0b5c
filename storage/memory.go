package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mediawatch/types"
)

type memoryItem struct {
	item *types.ClassifiedItem
	date string
}

type fingerprintRecord struct {
	publishedAt  time.Time
	registeredAt time.Time
}

// Memory is an in-memory store with the same behaviour as DB. It backs tests
// and demo runs where no database file is wanted.
type Memory struct {
	mu           sync.RWMutex
	items        map[string]memoryItem
	batches      map[string]*types.DailyBatch
	fingerprints map[string]fingerprintRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items:        make(map[string]memoryItem),
		batches:      make(map[string]*types.DailyBatch),
		fingerprints: make(map[string]fingerprintRecord),
	}
}

// Close is a no-op; it exists so Memory satisfies the same contract as DB.
func (m *Memory) Close() error { return nil }

// Seen reports whether a fingerprint was registered at or after `since`.
func (m *Memory) Seen(_ context.Context, fingerprint string, since time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.fingerprints[fingerprint]
	if !ok {
		return false, nil
	}
	return !rec.registeredAt.Before(since), nil
}

// Register records a fingerprint observation, sliding the window forward on
// re-registration.
func (m *Memory) Register(_ context.Context, fingerprint string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprints[fingerprint] = fingerprintRecord{
		publishedAt:  publishedAt,
		registeredAt: time.Now(),
	}
	return nil
}

// SaveBatch replaces the stored result for the batch date.
func (m *Memory) SaveBatch(_ context.Context, batch *types.DailyBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fp, mi := range m.items {
		if mi.date == batch.Date {
			delete(m.items, fp)
		}
	}

	stored := &types.DailyBatch{
		Date:       batch.Date,
		RunID:      batch.RunID,
		Duplicates: batch.Duplicates,
		Skipped:    batch.Skipped,
		CreatedAt:  batch.CreatedAt,
		Items:      make([]*types.ClassifiedItem, 0, len(batch.Items)),
	}
	for _, it := range batch.Items {
		cp := *it
		stored.Items = append(stored.Items, &cp)
		m.items[it.ID] = memoryItem{item: &cp, date: batch.Date}
	}
	m.batches[batch.Date] = stored
	return nil
}

// GetItem fetches one classified item by fingerprint.
func (m *Memory) GetItem(_ context.Context, fingerprint string) (*types.ClassifiedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mi, ok := m.items[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mi.item
	return &cp, nil
}

// GetBatch fetches the batch for a date with its items in published order.
func (m *Memory) GetBatch(_ context.Context, date string) (*types.DailyBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.batches[date]
	if !ok {
		return nil, ErrNotFound
	}

	out := *stored
	out.Items = make([]*types.ClassifiedItem, 0, len(stored.Items))
	for _, it := range stored.Items {
		cp := *it
		out.Items = append(out.Items, &cp)
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].PublishedAt.Before(out.Items[j].PublishedAt)
	})
	return &out, nil
}

// ListBatches returns the most recent batch summaries, newest first.
func (m *Memory) ListBatches(_ context.Context, limit int) ([]types.BatchSummary, error) {
	if limit <= 0 {
		limit = 30
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	dates := make([]string, 0, len(m.batches))
	for d := range m.batches {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	out := make([]types.BatchSummary, 0, limit)
	for _, d := range dates {
		if len(out) == limit {
			break
		}
		out = append(out, m.batches[d].Summary())
	}
	return out, nil
}

// Trends returns per-day summaries for the last `days` days, oldest first.
func (m *Memory) Trends(_ context.Context, days int) ([]types.BatchSummary, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	m.mu.RLock()
	defer m.mu.RUnlock()

	dates := make([]string, 0, len(m.batches))
	for d := range m.batches {
		if d >= cutoff {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	out := make([]types.BatchSummary, 0, len(dates))
	for _, d := range dates {
		out = append(out, m.batches[d].Summary())
	}
	return out, nil
}

// ItemsByDateRange returns items whose batch date falls in [from, to],
// ordered by publication time.
func (m *Memory) ItemsByDateRange(_ context.Context, from, to string) ([]*types.ClassifiedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*types.ClassifiedItem
	for _, mi := range m.items {
		if mi.date >= from && mi.date <= to {
			cp := *mi.item
			items = append(items, &cp)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})
	return items, nil
}
