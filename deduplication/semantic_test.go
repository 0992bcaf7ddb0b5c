package deduplication

import (
	"context"
	"testing"
	"time"

	"mediawatch/types"
)

// fakeEmbedder returns canned vectors keyed by input text.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-test-model" }

func embKey(item *types.NormalizedItem) string { return item.Title + " " + item.Body }

func TestSemanticCheckerFlagsNearDuplicate(t *testing.T) {
	original := testItem("https://example.com/a", "Auto plant announces expansion")
	rewrite := testItem("https://other-site.mx/b", "Expansion announced at auto plant")
	unrelated := testItem("https://example.com/c", "Storm closes the highway")

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		embKey(original):  {1, 0, 0},
		embKey(rewrite):   {0.99, 0.01, 0},
		embKey(unrelated): {0, 1, 0},
	}}

	checker := NewSemanticChecker(embedder, 0.9, time.Hour, 0)
	if err := checker.Remember(original); err != nil {
		t.Fatalf("remember failed: %v", err)
	}

	match, err := checker.Check(rewrite)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if match == nil {
		t.Fatal("near-duplicate not detected")
	}
	if match.ID != original.ID {
		t.Fatalf("matched %s; want %s", match.ID, original.ID)
	}
	if match.Score < 0.9 {
		t.Fatalf("similarity %.3f below threshold", match.Score)
	}

	match, err = checker.Check(unrelated)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if match != nil {
		t.Fatalf("unrelated item flagged as near-duplicate of %s", match.ID)
	}
}

func TestSemanticCheckThenRememberEmbedsOnce(t *testing.T) {
	item := testItem("https://example.com/once", "Budget approved for port works")
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		embKey(item): {0, 1, 0},
	}}

	checker := NewSemanticChecker(embedder, 0, time.Hour, 0)
	if _, err := checker.Check(item); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if err := checker.Remember(item); err != nil {
		t.Fatalf("remember failed: %v", err)
	}
	// The miss-then-register path is the common case for every new item;
	// it must not cost two embedding calls.
	if embedder.calls != 1 {
		t.Fatalf("expected 1 embedding call, got %d", embedder.calls)
	}
}

func TestSemanticBatchedRemembersWithoutReembedding(t *testing.T) {
	a := testItem("https://example.com/batch-a", "Refinery maintenance scheduled")
	b := testItem("https://example.com/batch-b", "New rail link breaks ground")
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		embKey(a): {1, 0, 0},
		embKey(b): {0, 1, 0},
	}}

	checker := NewSemanticChecker(embedder, 0.99, time.Hour, 0)

	// A batch run checks every item up front and remembers the survivors
	// only after the batch persists, so checks and remembers interleave
	// batch-wide, not per item. Each vector must still be computed once.
	for _, it := range []*types.NormalizedItem{a, b} {
		if _, err := checker.Check(it); err != nil {
			t.Fatalf("check %s: %v", it.Title, err)
		}
	}
	for _, it := range []*types.NormalizedItem{a, b} {
		if err := checker.Remember(it); err != nil {
			t.Fatalf("remember %s: %v", it.Title, err)
		}
	}
	if embedder.calls != 2 {
		t.Fatalf("expected 2 embedding calls, got %d", embedder.calls)
	}

	// The remembered vectors are live: a clone of the first story matches.
	clone := testItem("https://example.com/batch-a2", "Refinery maintenance rescheduled")
	embedder.vectors[embKey(clone)] = []float32{1, 0, 0}
	match, err := checker.Check(clone)
	if err != nil {
		t.Fatalf("check clone: %v", err)
	}
	if match == nil || match.ID != a.ID {
		t.Fatalf("expected the clone to match %s, got %+v", a.ID, match)
	}
}

func TestSemanticCacheEviction(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	checker := NewSemanticChecker(embedder, 0.9, time.Hour, 2)

	a := testItem("https://example.com/1", "first story")
	b := testItem("https://example.com/2", "second story")
	c := testItem("https://example.com/3", "third story")
	embedder.vectors[embKey(a)] = []float32{1, 0, 0}
	embedder.vectors[embKey(b)] = []float32{0, 1, 0}
	embedder.vectors[embKey(c)] = []float32{0, 0, 1}

	for _, it := range []*types.NormalizedItem{a, b, c} {
		if err := checker.Remember(it); err != nil {
			t.Fatalf("remember %s: %v", it.Title, err)
		}
	}

	// Capacity 2: the oldest entry (a) is gone, so an exact re-embedding of
	// its text no longer matches anything.
	clone := testItem("https://example.com/1b", "first story clone")
	embedder.vectors[embKey(clone)] = []float32{1, 0, 0}
	match, err := checker.Check(clone)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if match != nil {
		t.Fatalf("evicted entry still matched: %s", match.ID)
	}
}

func TestDeduplicatorUsesSemanticLayer(t *testing.T) {
	original := testItem("https://example.com/orig", "Plant announces major expansion")
	republished := testItem("https://mirror.example.net/copy", "Major expansion announced at plant")

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		embKey(original):    {1, 0, 0},
		embKey(republished): {0.999, 0.001, 0},
	}}
	checker := NewSemanticChecker(embedder, 0.95, time.Hour, 0)

	index := newFakeIndex()
	dedup, err := New(index, Config{Semantic: checker})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	ctx := context.Background()
	result, err := dedup.Process(ctx, original)
	if err != nil {
		t.Fatalf("process original: %v", err)
	}
	if result.IsDuplicate {
		t.Fatal("original flagged as duplicate")
	}

	// Different link, so the exact fingerprint is new, but the embedding
	// collides with the remembered original.
	result, err = dedup.Process(ctx, republished)
	if err != nil {
		t.Fatalf("process republished: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("republished story not flagged as near-duplicate")
	}
	if result.MatchingID != original.ID {
		t.Fatalf("matched %s; want %s", result.MatchingID, original.ID)
	}
	if index.count() != 1 {
		t.Fatalf("near-duplicate was registered: %d registrations", index.count())
	}
}
