package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/deckwatch/internal/observability"
)

// RequestLogger logs each request with slog and records its latency.
// Metrics are labelled with the matched route template, not the raw
// path, so per-stream URLs do not explode label cardinality.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())

		// Probes and scrapes are metered but not logged.
		switch route {
		case "/healthz", "/readyz", "/metrics":
			return
		}

		slog.Log(c.Request.Context(), levelFor(status), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"bytes", c.Writer.Size(),
			"ip", c.ClientIP(),
		)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
