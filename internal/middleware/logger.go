package middleware

import (
	"strconv"
	"time"

	"warmwall/internal/logging"
	"warmwall/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RequestLogger 每个请求一行日志，并记录 Prometheus 指标
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		event := logging.Info()
		if status >= 500 {
			event = logging.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Uint("user_id", ViewerID(c)).
			Msg("request")
	}
}
