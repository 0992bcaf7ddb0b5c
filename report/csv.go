// Package report renders and publishes end-of-run artifacts for a batch.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediawatch/types"
)

// Options control what WriteCSV includes.
type Options struct {
	// IncludeNeutral adds neutral rows; by default only risk and
	// opportunity items are exported.
	IncludeNeutral bool
}

// Filename returns the canonical CSV file name for a batch date.
func Filename(date string) string {
	return "daily_report_" + date + ".csv"
}

// WriteCSV renders the batch to dir/daily_report_<date>.csv, creating dir if
// needed, and returns the written path. Rows keep the batch's publication
// order.
func WriteCSV(dir string, batch *types.DailyBatch, opts Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, Filename(batch.Date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"date", "source", "title", "themes", "type", "confidence", "published_at", "url"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("report: write header: %w", err)
	}

	for _, it := range batch.Items {
		if it.Polarity == types.PolarityNeutral && !opts.IncludeNeutral {
			continue
		}
		row := []string{
			batch.Date,
			it.Source,
			it.Title,
			joinThemes(it.Themes),
			strings.ToUpper(string(it.Polarity)),
			strconv.FormatFloat(it.Confidence, 'f', 2, 64),
			it.PublishedAt.UTC().Format(time.RFC3339),
			it.CanonicalURL,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("report: write row for %s: %w", it.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("report: flush %s: %w", path, err)
	}
	return path, nil
}

func joinThemes(themes []types.ThemeTag) string {
	parts := make([]string, 0, len(themes))
	for _, th := range themes {
		parts = append(parts, string(th))
	}
	return strings.Join(parts, ", ")
}
