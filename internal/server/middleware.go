package server

import (
	"strconv"
	"time"

	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"

	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		// FullPath keeps the route template so path params don't explode
		// label cardinality. Unmatched routes report as "unmatched".
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RecordHTTPRequest(c.Request.Method, path, status, duration)
	}
}