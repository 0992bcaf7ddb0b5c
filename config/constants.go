package config

import "time"

// Ingestion Constants
const (
	// DefaultMaxPerFeed limits the number of entries taken from one feed per run
	DefaultMaxPerFeed = 25

	// DefaultFetchRetries is how many times a failing feed is retried
	DefaultFetchRetries = 3

	// DefaultRetryDelay is the wait time between feed retry attempts
	DefaultRetryDelay = 5 * time.Second
)

// Pipeline Constants
const (
	// DefaultLookbackDays is the deduplication window: items older than this
	// are treated as expired and may reappear as new
	DefaultLookbackDays = 14

	// DefaultClassifyWorkers is the number of concurrent classification workers
	DefaultClassifyWorkers = 4
)

// Date Constants
const (
	// DateLayout is the canonical batch date format
	DateLayout = "2006-01-02"
)

// Directory and File Constants
const (
	// DefaultDBPath is the SQLite database file
	DefaultDBPath = "data/mediawatch.db"

	// DefaultReportDir is where daily CSV reports are written
	DefaultReportDir = "data/reports"

	// DefaultSourcesPath is the YAML file listing RSS sources
	DefaultSourcesPath = "config/sources.yaml"

	// DefaultRulesPath is the YAML file with classification keywords
	DefaultRulesPath = "config/rules.yaml"
)

// Server Constants
const (
	// DefaultPort is the API server port
	DefaultPort = "8080"
)
