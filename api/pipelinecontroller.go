package api

import (
	"errors"
	"net/http"
	"time"

	"mediawatch/config"
	"mediawatch/orchestrator"

	"github.com/gin-gonic/gin"
)

// RegisterPipelineRoutes registers pipeline trigger and status endpoints.
func RegisterPipelineRoutes(r *gin.Engine, runner PipelineRunner) {
	g := r.Group("/api/pipeline")
	g.POST("/run", handleRunPipeline(runner))
	g.GET("/status", handlePipelineStatus(runner))
}

// handleRunPipeline triggers an asynchronous run for ?date= (default today).
// It returns 202 Accepted immediately; progress is served by /status.
func handleRunPipeline(runner PipelineRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		if date != "" {
			if _, err := time.Parse(config.DateLayout, date); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
		}

		runID, err := runner.TriggerRun(date)
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "run started", "run_id": runID})
	}
}

func handlePipelineStatus(runner PipelineRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, runner.Status())
	}
}
