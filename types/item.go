package types

import "time"

// Polarity labels an item as risk, opportunity or neutral coverage.
type Polarity string

const (
	PolarityNeutral     Polarity = "neutral"
	PolarityRisk        Polarity = "risk"
	PolarityOpportunity Polarity = "opportunity"
)

// ThemeTag identifies a monitored topic (e.g. "employment", "investment").
// The set of tags is defined by the classification rule set, not fixed here.
type ThemeTag string

// RawItem is a feed entry as collected from a source, before any validation.
// Transient: raw items are never persisted.
type RawItem struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
}

// NormalizedItem is a validated, cleaned item ready for deduplication.
// ID is the content fingerprint (see Fingerprint).
type NormalizedItem struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	Source            string    `json:"source"`
	PublishedAt       time.Time `json:"published_at"`
	CanonicalURL      string    `json:"canonical_url"`
	TimestampInferred bool      `json:"timestamp_inferred,omitempty"`
}

// ClassifiedItem is a normalized item with themes and polarity attached.
type ClassifiedItem struct {
	NormalizedItem
	Themes     []ThemeTag `json:"themes"`
	Polarity   Polarity   `json:"polarity"`
	Confidence float64    `json:"confidence"`
}

// DailyBatch is the finalized output of one pipeline run for a given date.
// Items are ordered by PublishedAt ascending. A batch is immutable once
// assembled; persistence replaces any prior batch for the same date.
type DailyBatch struct {
	Date       string            `json:"date"`
	RunID      string            `json:"run_id"`
	Items      []*ClassifiedItem `json:"items"`
	Duplicates int               `json:"duplicates"`
	Skipped    int               `json:"skipped"`
	CreatedAt  time.Time         `json:"created_at"`
}

// BatchSummary is the aggregate view of a batch used by listings and trends.
type BatchSummary struct {
	Date          string    `json:"date"`
	RunID         string    `json:"run_id"`
	ItemCount     int       `json:"item_count"`
	Duplicates    int       `json:"duplicates"`
	Skipped       int       `json:"skipped"`
	Risks         int       `json:"risks"`
	Opportunities int       `json:"opportunities"`
	Neutral       int       `json:"neutral"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary computes the aggregate counts for a batch.
func (b *DailyBatch) Summary() BatchSummary {
	s := BatchSummary{
		Date:       b.Date,
		RunID:      b.RunID,
		ItemCount:  len(b.Items),
		Duplicates: b.Duplicates,
		Skipped:    b.Skipped,
		CreatedAt:  b.CreatedAt,
	}
	for _, it := range b.Items {
		switch it.Polarity {
		case PolarityRisk:
			s.Risks++
		case PolarityOpportunity:
			s.Opportunities++
		default:
			s.Neutral++
		}
	}
	return s
}
