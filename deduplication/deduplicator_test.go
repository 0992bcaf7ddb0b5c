package deduplication

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediawatch/types"

	"github.com/redis/go-redis/v9"
)

type fakeIndex struct {
	mu          sync.Mutex
	registered  map[string]time.Time // fingerprint -> registered at
	seenErr     error
	registerErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{registered: make(map[string]time.Time)}
}

func (f *fakeIndex) Seen(_ context.Context, fingerprint string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seenErr != nil {
		return false, f.seenErr
	}
	at, ok := f.registered[fingerprint]
	if !ok {
		return false, nil
	}
	return !at.Before(since), nil
}

func (f *fakeIndex) Register(_ context.Context, fingerprint string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered[fingerprint] = time.Now()
	return nil
}

func (f *fakeIndex) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

func testItem(link, title string) *types.NormalizedItem {
	return &types.NormalizedItem{
		ID:           types.Fingerprint(link, title),
		Title:        title,
		Body:         title,
		Source:       "Wire",
		PublishedAt:  time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		CanonicalURL: types.CanonicalURL(link),
	}
}

func TestProcessNewThenDuplicate(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	item := testItem("https://example.com/story", "Plant opens in Saltillo")

	result, err := dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if result.IsDuplicate {
		t.Fatal("fresh item reported as duplicate")
	}
	if index.count() != 1 {
		t.Fatalf("expected 1 registration, got %d", index.count())
	}

	result, err = dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("re-processed item not reported as duplicate")
	}
	if index.count() != 1 {
		t.Fatalf("duplicate caused a second registration: %d", index.count())
	}
}

func TestCaseAndTrackingVariantsCollide(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	first := testItem("https://example.com/story", "Plant opens in Saltillo")
	second := testItem("https://example.com/story?utm_source=feed", "plant opens in saltillo")
	if first.ID != second.ID {
		t.Fatal("variant items should share a fingerprint")
	}

	if _, err := dedup.Process(context.Background(), first); err != nil {
		t.Fatalf("process first: %v", err)
	}
	result, err := dedup.Process(context.Background(), second)
	if err != nil {
		t.Fatalf("process second: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("case/tracking variant not detected as duplicate")
	}
}

func TestExpiredFingerprintIsNewAgain(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{Window: 24 * time.Hour})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	item := testItem("https://example.com/old", "Old story resurfaces")
	// Registration older than the window.
	index.registered[item.ID] = time.Now().Add(-48 * time.Hour)

	result, err := dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.IsDuplicate {
		t.Fatal("expired fingerprint still reported as duplicate")
	}
}

func TestIndexFailureIsFatal(t *testing.T) {
	index := newFakeIndex()
	index.seenErr = errors.New("connection refused")
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	_, err = dedup.Process(context.Background(), testItem("https://example.com/x", "X"))
	if err == nil {
		t.Fatal("expected an error when the index is down")
	}
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("error does not wrap ErrIndexUnavailable: %v", err)
	}

	index.seenErr = nil
	index.registerErr = errors.New("disk full")
	_, err = dedup.Process(context.Background(), testItem("https://example.com/y", "Y"))
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("register failure does not wrap ErrIndexUnavailable: %v", err)
	}
}

func TestConcurrentSameFingerprint(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	item := testItem("https://example.com/race", "Contested story")

	const goroutines = 16
	var wg sync.WaitGroup
	newCount := make(chan int, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := dedup.Process(context.Background(), item)
			if err != nil {
				t.Errorf("process failed: %v", err)
				return
			}
			if !result.IsDuplicate {
				newCount <- 1
			}
		}()
	}
	wg.Wait()
	close(newCount)

	wins := 0
	for range newCount {
		wins++
	}
	if wins != 1 {
		t.Fatalf("expected exactly one goroutine to claim the item as new, got %d", wins)
	}
	if index.count() != 1 {
		t.Fatalf("expected 1 registration, got %d", index.count())
	}
}

func TestBloomOutageDegradesToIndex(t *testing.T) {
	// Bloom layer pointing at a dead address: every BF call fails and the
	// check must fall through to the authoritative index.
	bloom := &RedisBloom{
		client: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		}),
		key: "test:bloom",
		ttl: time.Minute,
	}
	defer bloom.Close()

	index := newFakeIndex()
	dedup := &Deduplicator{index: index, window: DefaultWindow, bloom: bloom}

	item := testItem("https://example.com/degraded", "Bloom outage story")
	result, err := dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("process with dead bloom failed: %v", err)
	}
	if result.IsDuplicate {
		t.Fatal("fresh item reported as duplicate")
	}
	if index.count() != 1 {
		t.Fatalf("expected the index registration to succeed, got %d", index.count())
	}

	result, err = dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("duplicate not detected through the index while bloom is down")
	}
}

type fakeBloom struct {
	mu        sync.Mutex
	contains  map[string]bool
	adds      []string
	existsErr error
	addErr    error
}

func newFakeBloom() *fakeBloom {
	return &fakeBloom{contains: make(map[string]bool)}
}

func (f *fakeBloom) Exists(fingerprint string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.contains[fingerprint], nil
}

func (f *fakeBloom) Add(fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.contains[fingerprint] = true
	f.adds = append(f.adds, fingerprint)
	return nil
}

func (f *fakeBloom) Close() error { return nil }

func TestBloomMissNeverSkipsIndex(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}
	// Empty filter over an index with history: the filter has never seen the
	// fingerprint (a lost add, or Redis enabled late) but the index has.
	dedup.bloom = newFakeBloom()

	item := testItem("https://example.com/lagging", "Filter lags the index")
	index.registered[item.ID] = time.Now()

	result, err := dedup.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("bloom miss must not override the index")
	}
}

func TestRegisterFeedsBloom(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}
	bloom := newFakeBloom()
	dedup.bloom = bloom

	item := testItem("https://example.com/fed", "Filter gets fed")
	if err := dedup.Register(context.Background(), item); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(bloom.adds) != 1 || bloom.adds[0] != item.ID {
		t.Fatalf("expected the fingerprint in the filter, got %v", bloom.adds)
	}

	// A failed filter add must not fail registration; the index carries it.
	bloom.addErr = errors.New("connection reset")
	other := testItem("https://example.com/fed2", "Filter add fails")
	if err := dedup.Register(context.Background(), other); err != nil {
		t.Fatalf("register must tolerate a failed filter add: %v", err)
	}
	if index.count() != 2 {
		t.Fatalf("expected both items in the index, got %d", index.count())
	}
}

func TestIsDuplicateDoesNotRegister(t *testing.T) {
	index := newFakeIndex()
	dedup, err := New(index, Config{})
	if err != nil {
		t.Fatalf("failed to create deduplicator: %v", err)
	}

	item := testItem("https://example.com/peek", "Read-only check")
	result, err := dedup.IsDuplicate(context.Background(), item)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.IsDuplicate {
		t.Fatal("unregistered item reported as duplicate")
	}
	if index.count() != 0 {
		t.Fatal("IsDuplicate must not write to the index")
	}
}
