package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediawatch/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testBatch(date string, times ...time.Time) *types.DailyBatch {
	batch := &types.DailyBatch{
		Date:      date,
		RunID:     "run-" + date,
		CreatedAt: time.Now().UTC(),
	}
	for i, ts := range times {
		batch.Items = append(batch.Items, &types.ClassifiedItem{
			NormalizedItem: types.NormalizedItem{
				ID:           types.Fingerprint("https://example.com/"+date+string(rune('a'+i)), "story"),
				Title:        "story",
				Body:         "body",
				Source:       "Wire",
				PublishedAt:  ts,
				CanonicalURL: "https://example.com/" + date,
			},
			Themes:     []types.ThemeTag{"investment"},
			Polarity:   types.PolarityOpportunity,
			Confidence: 0.5,
		})
	}
	return batch
}

func TestSaveAndGetBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t1 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 7, 1, 11, 30, 0, 0, time.UTC)
	batch := testBatch("2025-07-01", t2, t1) // deliberately out of order
	batch.Duplicates = 3
	batch.Skipped = 1

	if err := db.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := db.GetBatch(ctx, "2025-07-01")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("got %d items; want 2", len(got.Items))
	}
	// Items come back in published order regardless of insert order.
	if !got.Items[0].PublishedAt.Equal(t1) || !got.Items[1].PublishedAt.Equal(t2) {
		t.Errorf("items not ordered by published_at: %v, %v",
			got.Items[0].PublishedAt, got.Items[1].PublishedAt)
	}
	if got.Duplicates != 3 || got.Skipped != 1 {
		t.Errorf("counters lost: duplicates=%d skipped=%d", got.Duplicates, got.Skipped)
	}
	if got.RunID != "run-2025-07-01" {
		t.Errorf("run id lost: %q", got.RunID)
	}

	it := got.Items[0]
	if len(it.Themes) != 1 || it.Themes[0] != "investment" {
		t.Errorf("themes not round-tripped: %v", it.Themes)
	}
	if it.Polarity != types.PolarityOpportunity || it.Confidence != 0.5 {
		t.Errorf("classification not round-tripped: %s %v", it.Polarity, it.Confidence)
	}
}

func TestSaveBatchReplacesDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ts := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	first := testBatch("2025-07-02", ts, ts.Add(time.Hour))
	if err := db.SaveBatch(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Re-run of the same day with fewer survivors replaces the old result.
	second := testBatch("2025-07-02", ts)
	second.Duplicates = 5
	if err := db.SaveBatch(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := db.GetBatch(ctx, "2025-07-02")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(got.Items) != 1 {
		t.Errorf("old items survived the re-save: got %d items", len(got.Items))
	}
	if got.Duplicates != 5 {
		t.Errorf("batch row not replaced: duplicates=%d", got.Duplicates)
	}
}

func TestFingerprintWindow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fp := types.Fingerprint("https://example.com/win", "Window test")
	published := time.Now().UTC().Add(-2 * time.Hour)

	seen, err := db.Seen(ctx, fp, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Seen before register: %v", err)
	}
	if seen {
		t.Fatal("unregistered fingerprint reported as seen")
	}

	if err := db.Register(ctx, fp, published); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Registering again must not fail: the operation is idempotent.
	if err := db.Register(ctx, fp, published); err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	seen, err = db.Seen(ctx, fp, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Seen after register: %v", err)
	}
	if !seen {
		t.Fatal("registered fingerprint not seen inside window")
	}

	// A cutoff in the future puts the registration outside the window.
	seen, err = db.Seen(ctx, fp, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Seen with future cutoff: %v", err)
	}
	if seen {
		t.Fatal("expired fingerprint still reported as seen")
	}
}

func TestGetItemAndNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetItem(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetItem miss = %v; want ErrNotFound", err)
	}
	if _, err := db.GetBatch(ctx, "1999-01-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBatch miss = %v; want ErrNotFound", err)
	}

	ts := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)
	batch := testBatch("2025-07-03", ts)
	if err := db.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := db.GetItem(ctx, batch.Items[0].ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != "story" || !got.PublishedAt.Equal(ts) {
		t.Errorf("item fields wrong: %+v", got)
	}
}

func TestListBatchesAndTrends(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	today := time.Now().UTC()
	var dates []string
	for i := 0; i < 3; i++ {
		d := today.AddDate(0, 0, -i).Format("2006-01-02")
		dates = append(dates, d)
		if err := db.SaveBatch(ctx, testBatch(d, today.Add(-time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveBatch %s: %v", d, err)
		}
	}

	list, err := db.ListBatches(ctx, 2)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d summaries; want 2", len(list))
	}
	// Newest first.
	if list[0].Date != dates[0] || list[1].Date != dates[1] {
		t.Errorf("wrong order: %s, %s", list[0].Date, list[1].Date)
	}
	if list[0].Opportunities != 1 || list[0].ItemCount != 1 {
		t.Errorf("summary counts wrong: %+v", list[0])
	}

	trends, err := db.Trends(ctx, 7)
	if err != nil {
		t.Fatalf("Trends: %v", err)
	}
	if len(trends) != 3 {
		t.Fatalf("got %d trend rows; want 3", len(trends))
	}
	// Oldest first.
	if trends[0].Date != dates[2] || trends[2].Date != dates[0] {
		t.Errorf("trend order wrong: %s ... %s", trends[0].Date, trends[2].Date)
	}
}

func TestItemsByDateRange(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mk := func(date string, hour int) {
		ts := time.Date(2025, 7, 10, hour, 0, 0, 0, time.UTC)
		if err := db.SaveBatch(ctx, testBatch(date, ts)); err != nil {
			t.Fatalf("SaveBatch %s: %v", date, err)
		}
	}
	mk("2025-07-08", 9)
	mk("2025-07-09", 8)
	mk("2025-07-12", 7)

	items, err := db.ItemsByDateRange(ctx, "2025-07-08", "2025-07-10")
	if err != nil {
		t.Fatalf("ItemsByDateRange: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items; want 2", len(items))
	}
	if !items[0].PublishedAt.Before(items[1].PublishedAt) {
		t.Error("range items not in published order")
	}
}
