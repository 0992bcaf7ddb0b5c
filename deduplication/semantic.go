package deduplication

import (
	"fmt"
	"math"
	"sync"
	"time"

	"mediawatch/types"
)

const (
	// DefaultSimilarityThreshold is the cosine similarity above which two
	// items count as the same story.
	DefaultSimilarityThreshold float32 = 0.95

	// DefaultMaxCached bounds the in-process embedding cache.
	DefaultMaxCached = 512

	// pendingTTL bounds how long a Check embedding waits for the Remember
	// that follows a persisted batch. Longer than any single run.
	pendingTTL = 15 * time.Minute
)

// SemanticMatch identifies the cached item a candidate collided with.
type SemanticMatch struct {
	ID    string
	Score float32
}

type cachedEmbedding struct {
	id      string
	vec     []float32
	addedAt time.Time
}

// SemanticChecker flags near-duplicates that exact fingerprinting misses:
// the same story republished under a different link or a reworded title.
// It keeps embeddings of recently registered items in process and compares
// candidates by cosine similarity. Entries expire with the dedup window and
// the cache is bounded, so this is a best-effort layer: a miss here only
// means the item falls through to normal handling.
type SemanticChecker struct {
	mu         sync.Mutex
	embedder   EmbeddingsProvider
	threshold  float32
	ttl        time.Duration
	maxEntries int
	entries    []cachedEmbedding

	// embeddings produced by Check, held until Remember consumes them so the
	// register pass after a persisted batch does not pay for a second API
	// call per item
	pending map[string]pendingEmbedding
}

type pendingEmbedding struct {
	vec     []float32
	addedAt time.Time
}

// NewSemanticChecker builds a checker over the given provider. Zero values
// select the defaults; ttl should match the dedup window.
func NewSemanticChecker(embedder EmbeddingsProvider, threshold float32, ttl time.Duration, maxEntries int) *SemanticChecker {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCached
	}
	return &SemanticChecker{
		embedder:   embedder,
		threshold:  threshold,
		ttl:        ttl,
		maxEntries: maxEntries,
		pending:    make(map[string]pendingEmbedding),
	}
}

// NewSemanticFromEnv wires a checker from environment configuration.
// Returns nil when no embeddings provider is configured.
func NewSemanticFromEnv(window time.Duration) *SemanticChecker {
	embedder := NewEmbeddingsFromEnv()
	if embedder == nil {
		return nil
	}
	return NewSemanticChecker(embedder, 0, window, 0)
}

// Check compares the item against recently remembered items. A nil match
// means no near-duplicate was found.
func (s *SemanticChecker) Check(item *types.NormalizedItem) (*SemanticMatch, error) {
	vec, err := s.embed(item)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[item.ID] = pendingEmbedding{vec: vec, addedAt: time.Now()}
	s.pruneLocked()

	var best *SemanticMatch
	for _, e := range s.entries {
		if e.id == item.ID {
			continue
		}
		score := cosineSimilarity(vec, e.vec)
		if score < s.threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &SemanticMatch{ID: e.id, Score: score}
		}
	}
	return best, nil
}

// Remember caches the item's embedding for future checks, reusing the
// vector a prior Check produced when one is pending.
func (s *SemanticChecker) Remember(item *types.NormalizedItem) error {
	s.mu.Lock()
	memo, ok := s.pending[item.ID]
	if ok {
		delete(s.pending, item.ID)
	}
	s.mu.Unlock()

	vec := memo.vec
	if !ok {
		var err error
		vec, err = s.embed(item)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, cachedEmbedding{id: item.ID, vec: vec, addedAt: time.Now()})
	if over := len(s.entries) - s.maxEntries; over > 0 {
		s.entries = s.entries[over:]
	}
	return nil
}

func (s *SemanticChecker) embed(item *types.NormalizedItem) ([]float32, error) {
	text := item.Title + " " + item.Body
	vecs, err := s.embedder.EmbedTexts([]string{text})
	if err != nil {
		return nil, fmt.Errorf("embed item %s: %w", item.ID, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for %s", item.ID)
	}
	return vecs[0], nil
}

// pruneLocked drops expired entries and abandoned pending embeddings
// (checked items that never came back for Remember). Caller holds the lock.
func (s *SemanticChecker) pruneLocked() {
	cutoff := time.Now().Add(-s.ttl)
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.addedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	stale := time.Now().Add(-pendingTTL)
	for id, p := range s.pending {
		if p.addedAt.Before(stale) {
			delete(s.pending, id)
		}
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
