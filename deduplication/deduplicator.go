// Package deduplication decides whether an item has already been seen inside
// the lookback window. The authoritative record is the fingerprint index; a
// Redis bloom filter and an embeddings-based near-duplicate checker are
// optional accelerators layered on top.
package deduplication

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mediawatch/types"
)

// DefaultWindow is the lookback window: fingerprints older than this are
// treated as expired and the story may legitimately reappear as new.
const DefaultWindow = 14 * 24 * time.Hour

// ErrIndexUnavailable marks a fingerprint index failure. It is fatal for the
// batch: without the index no duplicate decision can be trusted.
var ErrIndexUnavailable = errors.New("dedup index unavailable")

// Index is the authoritative fingerprint store. The SQLite store implements
// it; tests inject doubles.
type Index interface {
	Seen(ctx context.Context, fingerprint string, since time.Time) (bool, error)
	Register(ctx context.Context, fingerprint string, publishedAt time.Time) error
}

// Result describes the outcome of one duplicate check.
type Result struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Fingerprint string `json:"fingerprint"`
	// MatchingID and SimilarityScore are set only for near-duplicate matches.
	MatchingID      string    `json:"matching_id,omitempty"`
	SimilarityScore float32   `json:"similarity_score,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// bloomFilter is the prefilter surface; *RedisBloom implements it.
type bloomFilter interface {
	Exists(fingerprint string) (bool, error)
	Add(fingerprint string) error
	Close() error
}

// Deduplicator performs exact-fingerprint deduplication with optional bloom
// and semantic layers. Process serializes check-then-register, so concurrent
// callers can never both claim the same fingerprint as new.
type Deduplicator struct {
	mu       sync.Mutex
	index    Index
	window   time.Duration
	bloom    bloomFilter
	semantic *SemanticChecker
}

// Config holds deduplicator tuning.
type Config struct {
	// Window is the lookback horizon. Default: DefaultWindow.
	Window time.Duration
	// Bloom enables the Redis prefilter when non-nil.
	Bloom *BloomConfig
	// Semantic enables near-duplicate detection when non-nil.
	Semantic *SemanticChecker
}

// New creates a Deduplicator over the given index.
func New(index Index, cfg Config) (*Deduplicator, error) {
	if index == nil {
		return nil, fmt.Errorf("fingerprint index cannot be nil")
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	d := &Deduplicator{
		index:    index,
		window:   cfg.Window,
		semantic: cfg.Semantic,
	}
	if cfg.Bloom != nil {
		b, err := NewRedisBloom(*cfg.Bloom)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RedisBloom: %w", err)
		}
		d.bloom = b
	}
	return d, nil
}

// NewFromEnv creates a Deduplicator over the given index with the optional
// layers wired from the environment: the Redis bloom prefilter when
// REDIS_ADDR is set, the semantic checker when an embeddings provider is
// configured. A bloom connection failure disables the layer with a warning
// rather than failing startup.
func NewFromEnv(index Index, window time.Duration) (*Deduplicator, error) {
	d, err := New(index, Config{Window: window, Semantic: NewSemanticFromEnv(window)})
	if err != nil {
		return nil, err
	}

	bloom, err := NewRedisBloomFromEnv(d.window)
	if err != nil {
		log.Printf("Warning: bloom filter disabled: %v", err)
	} else if bloom != nil {
		d.bloom = bloom
	}
	return d, nil
}

// IsDuplicate checks an item against the index without registering it.
//
// The index is authoritative and is always read. The bloom filter, when
// enabled, is consulted first as a shared prefilter, but its answer is
// advisory in both directions: a hit can be a false positive or an expired
// entry, and a miss can lag the index (a failed add, Redis enabled after the
// index already had history, the key evicted mid-window), so neither skips
// the index read. Bloom errors degrade to plain index lookups.
func (d *Deduplicator) IsDuplicate(ctx context.Context, item *types.NormalizedItem) (*Result, error) {
	result := &Result{Fingerprint: item.ID, CheckedAt: time.Now()}
	since := result.CheckedAt.Add(-d.window)

	inFilter := false
	if d.bloom != nil {
		hit, err := d.bloom.Exists(item.ID)
		if err != nil {
			log.Printf("Warning: bloom check failed: %v", err)
		} else {
			inFilter = hit
		}
	}

	seen, err := d.index.Seen(ctx, item.ID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if seen {
		result.IsDuplicate = true
		return result, nil
	}
	if inFilter {
		// Stale entry or false positive; the index wins.
		log.Printf("Bloom hit for %s not confirmed by the index", item.ID)
	}

	// Exact match says new; the semantic layer may still recognise the same
	// story republished under a different link.
	if d.semantic != nil {
		match, err := d.semantic.Check(item)
		if err != nil {
			log.Printf("Warning: semantic check failed for %s: %v", item.ID, err)
			return result, nil
		}
		if match != nil {
			result.IsDuplicate = true
			result.MatchingID = match.ID
			result.SimilarityScore = match.Score
			log.Printf("Near-duplicate: %s matches %s with %.2f%% similarity",
				item.ID, match.ID, match.Score*100)
		}
	}
	return result, nil
}

// Register records an item's fingerprint in the index and feeds the optional
// layers. Registering the same fingerprint again is harmless. Filter and
// cache failures are non-fatal: neither layer is trusted over the index.
func (d *Deduplicator) Register(ctx context.Context, item *types.NormalizedItem) error {
	if err := d.index.Register(ctx, item.ID, item.PublishedAt); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if d.bloom != nil {
		if err := d.bloom.Add(item.ID); err != nil {
			log.Printf("Warning: failed to add fingerprint to bloom filter: %v", err)
		}
	}
	if d.semantic != nil {
		if err := d.semantic.Remember(item); err != nil {
			log.Printf("Warning: failed to cache embedding for %s: %v", item.ID, err)
		}
	}
	return nil
}

// Process checks and, when the item is new, registers it, under one lock.
// This is the only safe entry point when multiple goroutines feed items:
// check and register must not interleave for the same fingerprint.
func (d *Deduplicator) Process(ctx context.Context, item *types.NormalizedItem) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.IsDuplicate(ctx, item)
	if err != nil {
		return nil, err
	}
	if !result.IsDuplicate {
		if err := d.Register(ctx, item); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Window returns the configured lookback duration.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// Close releases the optional bloom connection.
func (d *Deduplicator) Close() error {
	if d.bloom != nil {
		return d.bloom.Close()
	}
	return nil
}
