package main

import (
	"log"
	"net/http"
	"time"

	"mediawatch/api"
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
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()

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
		sched, err := scheduler.New(cfg.CronSpec, runner)
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	r := api.NewRouter(store, runner)

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/pipeline/run")
	log.Println("  GET  /api/pipeline/status")
	log.Println("  GET  /api/batches")
	log.Println("  GET  /api/batches/:date")
	log.Println("  GET  /api/items/:fingerprint")
	log.Println("  GET  /api/trends")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
