package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediawatch/types"
)

func testBatch() *types.DailyBatch {
	t1 := time.Date(2025, 8, 18, 8, 0, 0, 0, time.UTC)
	return &types.DailyBatch{
		Date:  "2025-08-18",
		RunID: "run-1",
		Items: []*types.ClassifiedItem{
			{
				NormalizedItem: types.NormalizedItem{
					ID: "fp1", Title: "Nueva planta en Saltillo", Source: "Vanguardia",
					PublishedAt: t1, CanonicalURL: "https://vanguardia.example.com/planta",
				},
				Themes:     []types.ThemeTag{"investment", "employment"},
				Polarity:   types.PolarityOpportunity,
				Confidence: 0.5,
			},
			{
				NormalizedItem: types.NormalizedItem{
					ID: "fp2", Title: "Robo con violencia", Source: "Milenio",
					PublishedAt: t1.Add(time.Hour), CanonicalURL: "https://milenio.example.com/robo",
				},
				Themes:     []types.ThemeTag{"security"},
				Polarity:   types.PolarityRisk,
				Confidence: 0.25,
			},
			{
				NormalizedItem: types.NormalizedItem{
					ID: "fp3", Title: "Clima para el fin de semana", Source: "Milenio",
					PublishedAt: t1.Add(2 * time.Hour), CanonicalURL: "https://milenio.example.com/clima",
				},
				Polarity: types.PolarityNeutral,
			},
		},
		Duplicates: 1,
		Skipped:    2,
		CreatedAt:  t1.Add(3 * time.Hour),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	return rows
}

func TestWriteCSVFlaggedRowsOnly(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(dir, testBatch(), Options{})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if filepath.Base(path) != "daily_report_2025-08-18.csv" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 flagged rows, got %d rows", len(rows))
	}

	wantHeader := "date,source,title,themes,type,confidence,published_at,url"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("unexpected header: %s", got)
	}

	first := rows[1]
	if first[1] != "Vanguardia" || first[4] != "OPPORTUNITY" {
		t.Errorf("unexpected first row: %v", first)
	}
	if first[3] != "investment, employment" {
		t.Errorf("unexpected themes cell: %q", first[3])
	}
	if first[5] != "0.50" {
		t.Errorf("unexpected confidence cell: %q", first[5])
	}
	if first[6] != "2025-08-18T08:00:00Z" {
		t.Errorf("unexpected published_at cell: %q", first[6])
	}

	if rows[2][4] != "RISK" {
		t.Errorf("expected RISK row second, got %v", rows[2])
	}
}

func TestWriteCSVIncludeNeutral(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(dir, testBatch(), Options{IncludeNeutral: true})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[3][4] != "NEUTRAL" || rows[3][3] != "" {
		t.Errorf("unexpected neutral row: %v", rows[3])
	}
}

func TestWriteCSVEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	batch := &types.DailyBatch{Date: "2025-08-19"}
	path, err := WriteCSV(dir, batch, Options{})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	rows := readCSV(t, path)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}

type fakeUploader struct {
	existing     map[string]bool
	puts         map[string][]byte
	contentTypes map[string]string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		existing:     make(map[string]bool),
		puts:         make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeUploader) Put(_ context.Context, _ string, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.puts[key] = data
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeUploader) Exists(_ context.Context, _ string, key string) (bool, error) {
	return f.existing[key], nil
}

func TestPublisherUploadsArtifacts(t *testing.T) {
	up := newFakeUploader()
	p := NewPublisher(t.TempDir(), false)
	p.Uploader = up
	p.Bucket = "media-reports"
	p.Prefix = "mediawatch/"

	batch := testBatch()
	if err := p.Publish(context.Background(), batch); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	csvKey := "mediawatch/reports/daily_report_2025-08-18.csv"
	jsonKey := "mediawatch/batches/2025-08-18.json"

	if _, ok := up.puts[csvKey]; !ok {
		t.Fatalf("csv not uploaded; keys: %v", keys(up.puts))
	}
	if up.contentTypes[csvKey] != "text/csv" {
		t.Errorf("unexpected csv content type %q", up.contentTypes[csvKey])
	}

	data, ok := up.puts[jsonKey]
	if !ok {
		t.Fatalf("json snapshot not uploaded; keys: %v", keys(up.puts))
	}
	if up.contentTypes[jsonKey] != "application/json" {
		t.Errorf("unexpected json content type %q", up.contentTypes[jsonKey])
	}

	var decoded types.DailyBatch
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if decoded.Date != batch.Date || len(decoded.Items) != len(batch.Items) {
		t.Errorf("snapshot mismatch: %s with %d items", decoded.Date, len(decoded.Items))
	}
}

func TestPublisherLocalOnly(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(dir, false)

	if err := p.Publish(context.Background(), testBatch()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Filename("2025-08-18"))); err != nil {
		t.Errorf("expected local csv to exist: %v", err)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
