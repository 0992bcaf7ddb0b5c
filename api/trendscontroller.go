package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RegisterTrendsRoutes registers the trends endpoint.
func RegisterTrendsRoutes(r *gin.Engine, store Store) {
	r.GET("/api/trends", handleGetTrends(store))
}

// handleGetTrends returns per-day aggregate counts for the last ?days= days
// (default 7), oldest first, for trend charts.
func handleGetTrends(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 0
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
				return
			}
			days = n
		}

		trends, err := store.Trends(c.Request.Context(), days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"days": trends, "count": len(trends)})
	}
}
