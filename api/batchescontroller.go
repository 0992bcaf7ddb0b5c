package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mediawatch/config"
	"mediawatch/storage"

	"github.com/gin-gonic/gin"
)

// RegisterBatchRoutes registers batch listing and lookup endpoints.
func RegisterBatchRoutes(r *gin.Engine, store Store) {
	g := r.Group("/api/batches")
	g.GET("", handleListBatches(store))
	g.GET("/:date", handleGetBatch(store))

	r.GET("/api/items/:fingerprint", handleGetItem(store))
}

// handleListBatches returns recent batch summaries, newest first.
// Optional ?limit= caps the count (default 30).
func handleListBatches(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		summaries, err := store.ListBatches(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"batches": summaries, "count": len(summaries)})
	}
}

// handleGetBatch returns the full batch for a date, items included.
func handleGetBatch(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Param("date")
		if _, err := time.Parse(config.DateLayout, date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		batch, err := store.GetBatch(c.Request.Context(), date)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no batch for " + date})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

// handleGetItem returns a single classified item by fingerprint.
func handleGetItem(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fp := c.Param("fingerprint")
		item, err := store.GetItem(c.Request.Context(), fp)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no item with fingerprint " + fp})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}
