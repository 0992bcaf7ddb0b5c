package api

import (
	"context"

	"mediawatch/orchestrator"
	"mediawatch/types"

	"github.com/gin-gonic/gin"
)

// Store is the read surface the API serves from. Both storage backends
// satisfy it.
type Store interface {
	GetBatch(ctx context.Context, date string) (*types.DailyBatch, error)
	ListBatches(ctx context.Context, limit int) ([]types.BatchSummary, error)
	Trends(ctx context.Context, days int) ([]types.BatchSummary, error)
	GetItem(ctx context.Context, fingerprint string) (*types.ClassifiedItem, error)
}

// PipelineRunner is what the pipeline endpoints need from the orchestrator.
type PipelineRunner interface {
	TriggerRun(forDate string) (string, error)
	Status() orchestrator.StatusResponse
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(store Store, runner PipelineRunner) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	// Register resource routers
	RegisterHealthRoutes(r)
	RegisterPipelineRoutes(r, runner)
	RegisterBatchRoutes(r, store)
	RegisterTrendsRoutes(r, store)
	return r
}
