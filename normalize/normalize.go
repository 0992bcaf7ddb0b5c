// Package normalize turns raw feed entries into validated NormalizedItems.
package normalize

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"mediawatch/types"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
)

// ErrMalformedItem marks a raw entry that cannot become a valid item.
// Callers skip the entry and count it; the error never aborts a batch.
var ErrMalformedItem = errors.New("malformed item")

var (
	stripPolicy = bluemonday.StrictPolicy()
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Item validates and cleans a single raw entry.
//
// A missing link or an empty title (after trimming) is malformed. The body is
// the plain-text feed summary; when the summary is empty the title stands in
// so downstream matching always has text to work with. Timestamps are parsed
// leniently; entries whose timestamp cannot be read get the run timestamp
// (now) and are flagged TimestampInferred rather than dropped.
//
// The function is pure apart from the `now` argument: the same entry and the
// same now always produce the same item.
func Item(raw types.RawItem, now time.Time) (*types.NormalizedItem, error) {
	title := cleanText(raw.Title)
	link := strings.TrimSpace(raw.Link)

	if link == "" {
		return nil, fmt.Errorf("%w: missing link (source=%s)", ErrMalformedItem, raw.Source)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: empty title (link=%s)", ErrMalformedItem, link)
	}

	body := cleanText(raw.Summary)
	if body == "" {
		body = title
	}

	publishedAt, inferred := parseTimestamp(raw.Published, now)

	return &types.NormalizedItem{
		ID:                types.Fingerprint(link, title),
		Title:             title,
		Body:              body,
		Source:            strings.TrimSpace(raw.Source),
		PublishedAt:       publishedAt,
		CanonicalURL:      types.CanonicalURL(link),
		TimestampInferred: inferred,
	}, nil
}

// cleanText strips HTML tags and entities from feed text and collapses
// whitespace. Feeds routinely carry markup in titles and summaries.
func cleanText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.TrimSpace(s)
	return spaceRe.ReplaceAllString(s, " ")
}

// parseTimestamp reads the raw feed timestamp in any common format and
// converts it to UTC. Returns (now, true) when the value is missing or
// unreadable.
func parseTimestamp(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), true
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return now.UTC(), true
	}
	return t.UTC(), false
}
