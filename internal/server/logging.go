package server

import (
	"time"

	"github.com/LocDang637/CosplayDate-sub001/internal/logger"

	"github.com/gin-gonic/gin"
)

// Probe endpoints are scraped constantly and would drown out real traffic.
var unloggedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLoggingMiddleware logs HTTP requests with structured logging
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if unloggedPaths[path] {
			return
		}

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", clientIP,
			"user_agent", c.Request.UserAgent(),
		)
	}
}
