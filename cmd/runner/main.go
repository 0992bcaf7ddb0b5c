package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediawatch/classification"
	"mediawatch/config"
	"mediawatch/deduplication"
	"mediawatch/orchestrator"
	"mediawatch/report"
	"mediawatch/rssfeeds"
	"mediawatch/scheduler"
	"mediawatch/storage"

	"github.com/joho/godotenv"
)

func main() {
	dateFlag := flag.String("date", "", "batch date as YYYY-MM-DD (default: today UTC)")
	cronFlag := flag.String("cron", "", "cron spec; keep running on a schedule instead of a single pass (overrides CRON_SPEC)")
	flag.Parse()

	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if *cronFlag != "" {
		cfg.CronSpec = *cronFlag
	}

	if *dateFlag != "" {
		if _, err := time.Parse(config.DateLayout, *dateFlag); err != nil {
			log.Fatalf("Invalid -date %q: expected YYYY-MM-DD", *dateFlag)
		}
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Fatalf("Failed to load feed sources: %v", err)
	}
	log.Printf("Loaded %d feed sources from %s", len(sources), cfg.SourcesPath)

	rules, err := classification.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("Failed to load classification rules: %v", err)
	}

	window := time.Duration(cfg.LookbackDays) * 24 * time.Hour
	dedup, err := deduplication.NewFromEnv(store, window)
	if err != nil {
		log.Fatalf("Failed to initialize deduplicator: %v", err)
	}
	defer dedup.Close()

	pipeline := orchestrator.New(store, dedup, classification.New(rules), orchestrator.Config{
		Workers:      cfg.ClassifyWorkers,
		EnrichBodies: cfg.EnrichBodies,
	})
	fetcher := rssfeeds.NewFetcher(cfg.FetchRetries, cfg.RetryDelay, cfg.MaxPerFeed)
	publisher := report.NewPublisherFromEnv(cfg.ReportDir, cfg.ReportAll)
	runner := orchestrator.NewRunner(pipeline, fetcher, sources, publisher)

	if cfg.CronSpec != "" {
		runScheduled(cfg.CronSpec, runner)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Interrupt received, cancelling run...")
		cancel()
	}()

	batch, err := runner.RunOnce(ctx, *dateFlag)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	log.Printf("Batch %s stored: %d item(s), %d duplicate(s), %d skipped", batch.Date, len(batch.Items), batch.Duplicates, batch.Skipped)
}

// runScheduled runs the pipeline on the given cron spec until interrupted.
func runScheduled(spec string, runner *orchestrator.Runner) {
	sched, err := scheduler.New(spec, runner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down scheduler...")
}
