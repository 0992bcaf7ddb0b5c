package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime settings for a pipeline run. Values come from
// environment variables (a .env file is loaded by the entry points) with
// sensible defaults for local use.
type Config struct {
	Port        string
	DBPath      string
	SourcesPath string
	RulesPath   string
	ReportDir   string

	LookbackDays    int
	MaxPerFeed      int
	FetchRetries    int
	RetryDelay      time.Duration
	ClassifyWorkers int

	// EnrichBodies enables full-text extraction for entries whose feed
	// summary is empty. Off by default: it adds one HTTP fetch per item.
	EnrichBodies bool

	// ReportAll includes neutral items in the daily CSV; by default only
	// risk and opportunity rows are exported.
	ReportAll bool

	// CronSpec schedules periodic runs when set (cmd/runner -cron).
	CronSpec string
}

// Load builds a Config from the environment.
func Load() Config {
	return Config{
		Port:        getEnvOrDefault("PORT", DefaultPort),
		DBPath:      getEnvOrDefault("DB_PATH", DefaultDBPath),
		SourcesPath: getEnvOrDefault("SOURCES_PATH", DefaultSourcesPath),
		RulesPath:   getEnvOrDefault("RULES_PATH", DefaultRulesPath),
		ReportDir:   getEnvOrDefault("REPORT_DIR", DefaultReportDir),

		LookbackDays:    getEnvIntOrDefault("LOOKBACK_DAYS", DefaultLookbackDays),
		MaxPerFeed:      getEnvIntOrDefault("MAX_PER_FEED", DefaultMaxPerFeed),
		FetchRetries:    getEnvIntOrDefault("FETCH_RETRIES", DefaultFetchRetries),
		RetryDelay:      getEnvDurationOrDefault("FETCH_RETRY_DELAY_SECONDS", DefaultRetryDelay),
		ClassifyWorkers: getEnvIntOrDefault("CLASSIFY_WORKERS", DefaultClassifyWorkers),

		EnrichBodies: getEnvBoolOrDefault("ENRICH_BODIES", false),
		ReportAll:    getEnvBoolOrDefault("REPORT_INCLUDE_NEUTRAL", false),
		CronSpec:     os.Getenv("CRON_SPEC"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
