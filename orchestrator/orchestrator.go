// Package orchestrator runs the daily media-monitoring pipeline: normalize,
// deduplicate, classify, persist.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"mediawatch/classification"
	"mediawatch/config"
	"mediawatch/deduplication"
	"mediawatch/normalize"
	"mediawatch/rssfeeds"
	"mediawatch/storage"
	"mediawatch/types"

	"github.com/google/uuid"
)

// ErrEmptyBatch is returned when no item survives normalization. A run whose
// items all turn out to be duplicates is not an empty batch; it completes
// normally with a zero-item result.
var ErrEmptyBatch = errors.New("empty batch: no items survived normalization")

// Store is the persistence surface the pipeline writes through. GetBatch
// returns storage.ErrNotFound when no batch exists for the date.
type Store interface {
	GetBatch(ctx context.Context, date string) (*types.DailyBatch, error)
	SaveBatch(ctx context.Context, batch *types.DailyBatch) error
}

// Pipeline wires the stages of a batch run. Construct with New; a Pipeline is
// safe for sequential reuse across runs.
type Pipeline struct {
	store      Store
	dedup      *deduplication.Deduplicator
	classifier *classification.Classifier

	workers      int
	enrichBodies bool
}

// Config carries the optional knobs for a Pipeline.
type Config struct {
	// Workers sizes the classification worker pool. Defaults to
	// config.DefaultClassifyWorkers.
	Workers int
	// EnrichBodies fetches full article text for items whose feeds only
	// carried a stub summary. Off by default; it hits the source sites.
	EnrichBodies bool
}

// New creates a Pipeline over the given store, deduplicator and classifier.
func New(store Store, dedup *deduplication.Deduplicator, classifier *classification.Classifier, cfg Config) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultClassifyWorkers
	}
	return &Pipeline{
		store:        store,
		dedup:        dedup,
		classifier:   classifier,
		workers:      workers,
		enrichBodies: cfg.EnrichBodies,
	}
}

// RunBatch executes one full pipeline pass over rawItems and persists the
// result for forDate (YYYY-MM-DD; empty means today, UTC).
//
// Malformed items are skipped and counted, never fatal. If nothing survives
// normalization the run fails with ErrEmptyBatch and persists nothing. If the
// fingerprint index or store is unreachable the run fails with an
// ErrIndexUnavailable-wrapped error. Fingerprints commit to the index only
// after the batch persists, so a failed run leaves the index unchanged and a
// retry sees its items as new; registration and persistence are idempotent,
// so the run is safe to retry at any point.
func (p *Pipeline) RunBatch(ctx context.Context, rawItems []types.RawItem, forDate string) (*types.DailyBatch, error) {
	return p.run(ctx, rawItems, forDate, uuid.New().String())
}

func (p *Pipeline) run(ctx context.Context, rawItems []types.RawItem, forDate, runID string) (*types.DailyBatch, error) {
	if forDate == "" {
		forDate = time.Now().UTC().Format(config.DateLayout)
	}
	now := time.Now().UTC()

	log.Printf("=== Pipeline run %s for %s: %d raw items ===", runID, forDate, len(rawItems))

	// Stage 1: normalize, skipping malformed entries.
	items := make([]*types.NormalizedItem, 0, len(rawItems))
	skipped := 0
	for i, raw := range rawItems {
		item, err := normalize.Item(raw, now)
		if err != nil {
			skipped++
			log.Printf("  [%d/%d] ⚠️  Skipping malformed item from %q: %v", i+1, len(rawItems), raw.Source, err)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w (%d raw, %d skipped)", ErrEmptyBatch, len(rawItems), skipped)
	}

	// Stage 1b: optional full-text enrichment before classification.
	if p.enrichBodies {
		enriched := rssfeeds.EnrichBodies(items)
		log.Printf("Body enrichment: %d item(s) processed", enriched)
	}

	// Stage 2: order by publication time so the earliest copy of a story is
	// the one that survives deduplication.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})

	// Stage 3: deduplicate in order. This is check-only: registration waits
	// until the batch is persisted (stage 6), so a run that dies before then
	// leaves the index untouched and a retry sees its items as new. Copies
	// inside this batch are caught by the in-run set instead.
	unique := make([]*types.NormalizedItem, 0, len(items))
	inRun := make(map[string]bool, len(items))
	duplicates := 0
	for i, item := range items {
		if inRun[item.ID] {
			duplicates++
			log.Printf("  [%d/%d] 🔄 DUPLICATE: %s", i+1, len(items), item.Title)
			continue
		}
		result, err := p.dedup.IsDuplicate(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("dedup check for %s: %w", item.ID, err)
		}
		if result.IsDuplicate {
			duplicates++
			if result.MatchingID != "" && result.MatchingID != item.ID {
				log.Printf("  [%d/%d] 🔄 DUPLICATE (%.0f%% similar to %s)", i+1, len(items), result.SimilarityScore*100, result.MatchingID)
			} else {
				log.Printf("  [%d/%d] 🔄 DUPLICATE: %s", i+1, len(items), item.Title)
			}
			continue
		}
		log.Printf("  [%d/%d] ✅ NEW: %s", i+1, len(items), item.Title)
		inRun[item.ID] = true
		unique = append(unique, item)
	}

	// Stage 4: classify uniques on a worker pool. Classification is pure and
	// per-item independent; results land by index so order is preserved.
	classified := p.classifyAll(unique)

	batch := &types.DailyBatch{
		Date:       forDate,
		RunID:      runID,
		Items:      classified,
		Duplicates: duplicates,
		Skipped:    skipped,
		CreatedAt:  now,
	}

	// Stage 5: persist. Persisting replaces the stored batch for the date, so
	// fold in anything an earlier run already stored for it first; re-runs
	// must never shrink a day's record.
	merged, err := p.mergeExisting(ctx, batch)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveBatch(ctx, merged); err != nil {
		return nil, fmt.Errorf("%w: save batch %s: %v", deduplication.ErrIndexUnavailable, forDate, err)
	}

	// Stage 6: the batch is durable, so commit its fingerprints. If this dies
	// partway the retry re-checks the unregistered tail as new and the merge
	// above folds the persisted copies back in.
	for _, item := range unique {
		if err := p.dedup.Register(ctx, item); err != nil {
			return nil, fmt.Errorf("register %s: %w", item.ID, err)
		}
	}

	displaySummary(merged, len(rawItems))
	return merged, nil
}

// classifyAll runs the classifier over items using a worker pool and returns
// the results in the same order.
func (p *Pipeline) classifyAll(items []*types.NormalizedItem) []*types.ClassifiedItem {
	classified := make([]*types.ClassifiedItem, len(items))
	if len(items) == 0 {
		return classified
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(items))

	for w := 0; w < p.workers; w++ {
		go func() {
			for idx := range jobs {
				classified[idx] = p.classifier.Classify(items[idx])
				wg.Done()
			}
		}()
	}

	for i := range items {
		wg.Add(1)
		jobs <- i
	}
	wg.Wait()
	close(jobs)

	return classified
}

// mergeExisting folds a previously persisted batch for the same date into
// this run's result: earlier items are kept (they were stored first), counts
// accumulate, and ordering is restored. The returned batch carries this run's
// ID and creation time.
func (p *Pipeline) mergeExisting(ctx context.Context, batch *types.DailyBatch) (*types.DailyBatch, error) {
	existing, err := p.store.GetBatch(ctx, batch.Date)
	if errors.Is(err, storage.ErrNotFound) {
		return batch, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load batch %s: %v", deduplication.ErrIndexUnavailable, batch.Date, err)
	}

	have := make(map[string]bool, len(existing.Items))
	merged := make([]*types.ClassifiedItem, 0, len(existing.Items)+len(batch.Items))
	for _, it := range existing.Items {
		have[it.ID] = true
		merged = append(merged, it)
	}
	for _, it := range batch.Items {
		if have[it.ID] {
			continue
		}
		merged = append(merged, it)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.Before(merged[j].PublishedAt)
	})

	batch.Items = merged
	batch.Duplicates += existing.Duplicates
	batch.Skipped += existing.Skipped
	return batch, nil
}

func displaySummary(batch *types.DailyBatch, totalRaw int) {
	sum := batch.Summary()

	log.Println("\n=== Batch Summary ===")
	log.Printf("Date:          %s", batch.Date)
	log.Printf("Raw Items:     %d", totalRaw)
	log.Printf("Stored Items:  %d", sum.ItemCount)
	log.Printf("Duplicates:    %d", sum.Duplicates)
	log.Printf("Skipped:       %d", sum.Skipped)
	log.Printf("Risks:         %d", sum.Risks)
	log.Printf("Opportunities: %d", sum.Opportunities)
	log.Printf("Neutral:       %d", sum.Neutral)
	log.Println("=====================")
}
