package rssfeeds

import (
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"mediawatch/types"

	readability "github.com/go-shiori/go-readability"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second

	// Bodies shorter than this are stubs worth re-extracting.
	minBodyLength = 80
)

var enrichSpaceRe = regexp.MustCompile(`\s+`)

// EnrichBodies fills in missing or stub bodies by extracting readable text
// from each item's page using a worker pool. Items with substantial bodies
// are left untouched. Extraction failures are logged and skipped; the item
// keeps whatever body it already had. Returns the number of items queued.
func EnrichBodies(items []*types.NormalizedItem) int {
	var wg sync.WaitGroup
	itemChan := make(chan *types.NormalizedItem, len(items))

	// Start worker pool
	for i := 0; i < WorkerCount; i++ {
		go func(workerID int) {
			for item := range itemChan {
				if err := enrichItem(item); err != nil {
					log.Printf("[Worker %d] Failed to enrich %s: %v", workerID, item.CanonicalURL, err)
				}
				wg.Done()
			}
		}(i)
	}

	// Queue items that need a fuller body
	queued := 0
	for _, item := range items {
		if item == nil || !needsEnrichment(item) {
			continue
		}
		wg.Add(1)
		itemChan <- item
		queued++
	}

	wg.Wait()
	close(itemChan)

	return queued
}

func needsEnrichment(item *types.NormalizedItem) bool {
	if item.Body == "" || item.Body == item.Title {
		return true
	}
	return len(item.Body) < minBodyLength
}

// enrichItem fetches and extracts readable text for a single item.
func enrichItem(item *types.NormalizedItem) error {
	article, err := readability.FromURL(item.CanonicalURL, extractorTimeout)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(enrichSpaceRe.ReplaceAllString(article.TextContent, " "))
	if text == "" {
		return nil
	}

	item.Body = text
	log.Printf("✓ Extracted: %s", item.Title)
	return nil
}
