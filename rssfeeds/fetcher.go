// Package rssfeeds collects raw entries from configured RSS/Atom sources.
package rssfeeds

import (
	"context"
	"fmt"
	"log"
	"time"

	"mediawatch/config"
	"mediawatch/types"

	"github.com/mmcdole/gofeed"
)

// SourceStatus is the per-source accounting for one collection pass.
type SourceStatus struct {
	Source   string `json:"source"`
	Count    int    `json:"count"`
	Attempts int    `json:"attempts"`
	Err      error  `json:"-"`
}

// Fetcher collects feeds with per-source retry. A failing source never aborts
// the pass; it is reported in its SourceStatus and the pass moves on.
type Fetcher struct {
	MaxRetries int
	RetryDelay time.Duration
	MaxPerFeed int

	// parse is swappable in tests
	parse func(ctx context.Context, url string) (*gofeed.Feed, error)
}

// NewFetcher creates a Fetcher; zero values select the package defaults.
func NewFetcher(maxRetries int, retryDelay time.Duration, maxPerFeed int) *Fetcher {
	if maxRetries <= 0 {
		maxRetries = config.DefaultFetchRetries
	}
	if retryDelay <= 0 {
		retryDelay = config.DefaultRetryDelay
	}
	if maxPerFeed <= 0 {
		maxPerFeed = config.DefaultMaxPerFeed
	}
	return &Fetcher{
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		MaxPerFeed: maxPerFeed,
		parse: func(ctx context.Context, url string) (*gofeed.Feed, error) {
			return gofeed.NewParser().ParseURLWithContext(url, ctx)
		},
	}
}

// FetchAll collects every configured source in order and returns the combined
// raw items plus per-source statuses.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.FeedSource) ([]types.RawItem, []SourceStatus) {
	var items []types.RawItem
	statuses := make([]SourceStatus, 0, len(sources))

	for _, src := range sources {
		status := SourceStatus{Source: src.Name}
		fetched, attempts, err := f.fetchWithRetry(ctx, src)
		status.Attempts = attempts
		if err != nil {
			status.Err = err
			log.Printf("Failed to fetch %s after %d attempts: %v", src.Name, attempts, err)
		} else {
			status.Count = len(fetched)
			items = append(items, fetched...)
			log.Printf("Fetched %d entries from %s", len(fetched), src.Name)
		}
		statuses = append(statuses, status)
	}
	return items, statuses
}

// FetchSource collects a single source with retries.
func (f *Fetcher) FetchSource(ctx context.Context, src config.FeedSource) ([]types.RawItem, error) {
	items, _, err := f.fetchWithRetry(ctx, src)
	return items, err
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, src config.FeedSource) ([]types.RawItem, int, error) {
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		feed, err := f.parse(ctx, src.URL)
		if err == nil {
			return itemsFromFeed(feed, src.Name, f.MaxPerFeed), attempt, nil
		}
		lastErr = err
		log.Printf("Error fetching %s (attempt %d/%d): %v", src.Name, attempt, f.MaxRetries, err)

		if attempt < f.MaxRetries {
			select {
			case <-time.After(f.RetryDelay):
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			}
		}
	}
	return nil, f.MaxRetries, lastErr
}

// FetchFeed retrieves and parses one feed URL without retries. Used by the
// ad-hoc fetch endpoint; scheduled runs go through Fetcher.FetchAll.
func FetchFeed(feedURL, sourceName string, maxCount int) ([]types.RawItem, error) {
	feed, err := gofeed.NewParser().ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return itemsFromFeed(feed, sourceName, maxCount), nil
}

// itemsFromFeed maps parsed feed entries to raw items. Field values are
// passed through untouched; validation and cleaning happen in normalization.
func itemsFromFeed(feed *gofeed.Feed, sourceName string, maxCount int) []types.RawItem {
	if feed == nil {
		return nil
	}
	if sourceName == "" {
		sourceName = feed.Title
	}

	count := min(len(feed.Items), maxCount)
	items := make([]types.RawItem, 0, count)

	for i := 0; i < count; i++ {
		entry := feed.Items[i]

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		items = append(items, types.RawItem{
			Title:     entry.Title,
			Summary:   summary,
			Link:      entry.Link,
			Published: published,
			Source:    sourceName,
		})
	}
	return items
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
