package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"mediawatch/common"
	"mediawatch/types"
)

const uploadTimeout = 30 * time.Second

// Uploader is the object-store surface the publisher needs.
type Uploader interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Publisher writes the daily CSV locally and mirrors the CSV plus a JSON
// batch snapshot to S3 when configured. With no Uploader it is local-only.
type Publisher struct {
	Dir            string
	IncludeNeutral bool

	Uploader Uploader
	Bucket   string
	Prefix   string
}

// NewPublisher creates a local-only publisher writing CSVs under dir.
func NewPublisher(dir string, includeNeutral bool) *Publisher {
	return &Publisher{Dir: dir, IncludeNeutral: includeNeutral}
}

// NewPublisherFromEnv creates a publisher and enables the S3 mirror when
// S3_BUCKET is set. Optional: S3_REGION, S3_PROFILE, S3_PREFIX,
// S3_USE_PATH_STYLE=true. A failed client init disables uploads with a
// warning rather than failing the pipeline.
func NewPublisherFromEnv(dir string, includeNeutral bool) *Publisher {
	p := NewPublisher(dir, includeNeutral)

	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
	if bucket == "" {
		return p
	}

	cfg := common.S3Config{
		Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	}
	client, err := common.NewS3(context.Background(), cfg)
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v (uploads disabled)", err)
		return p
	}

	prefix := strings.TrimSpace(os.Getenv("S3_PREFIX"))
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}

	p.Uploader = client
	p.Bucket = bucket
	p.Prefix = prefix
	return p
}

// Publish writes the batch's CSV and mirrors the artifacts to S3. Tolerates
// an empty batch; the CSV then carries only the header row.
func (p *Publisher) Publish(ctx context.Context, batch *types.DailyBatch) error {
	path, err := WriteCSV(p.Dir, batch, Options{IncludeNeutral: p.IncludeNeutral})
	if err != nil {
		return err
	}
	log.Printf("Report written: %s", path)

	if p.Uploader == nil || p.Bucket == "" {
		log.Printf("S3 not configured; skipping uploads")
		return nil
	}
	return p.upload(ctx, batch, path)
}

func (p *Publisher) upload(ctx context.Context, batch *types.DailyBatch, csvPath string) error {
	csvKey := p.Prefix + "reports/" + Filename(batch.Date)

	uctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	exists, err := p.Uploader.Exists(uctx, p.Bucket, csvKey)
	cancel()
	if err != nil {
		log.Printf("Warning: S3 head for %s failed: %v", csvKey, err)
	} else if exists {
		log.Printf("Replacing existing report %s", csvKey)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		return fmt.Errorf("report: read %s for upload: %w", csvPath, err)
	}
	uctx, cancel = context.WithTimeout(ctx, uploadTimeout)
	err = p.Uploader.Put(uctx, p.Bucket, csvKey, bytes.NewReader(data), "text/csv")
	cancel()
	if err != nil {
		return fmt.Errorf("report: upload %s: %w", csvKey, err)
	}

	snapshot, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode batch snapshot: %w", err)
	}
	jsonKey := p.Prefix + "batches/" + batch.Date + ".json"
	uctx, cancel = context.WithTimeout(ctx, uploadTimeout)
	err = p.Uploader.Put(uctx, p.Bucket, jsonKey, bytes.NewReader(snapshot), "application/json")
	cancel()
	if err != nil {
		return fmt.Errorf("report: upload %s: %w", jsonKey, err)
	}

	log.Printf("S3 uploads complete: %s, %s", csvKey, jsonKey)
	return nil
}
