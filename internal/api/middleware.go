package api

import (
	"strconv"
	"time"

	"lending-core/internal/common/logger"
	"lending-core/internal/common/metrics"
	"lending-core/internal/common/observability"

	"github.com/gin-gonic/gin"
)

// requestMetrics records latency per route template so path parameters
// do not explode the label cardinality.
func requestMetrics(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())

		if obs != nil {
			obs.RecordRequest(c.Request.Context(), path, status)
			obs.RecordDuration(c.Request.Context(), path, time.Since(start))
		}
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields)
			return
		}
		log.Info("request handled", fields)
	}
}
