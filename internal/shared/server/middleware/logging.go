package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/telemetry"
)

const (
	// VariantKey is set by pipeline handlers so request logs carry the service option.
	VariantKey = "variant"
	// StageKey is set when a pipeline fails, naming the failing stage.
	StageKey = "stage"
)

// Logging emits one request.complete line per request and feeds the HTTP
// metrics. Preflight requests are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()

		metrics.ObserveHTTPRequest(c.Request.Method, route, status, latency)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"variant":     c.GetString(VariantKey),
			"stage":       c.GetString(StageKey),
			"bytes_in":    c.Request.ContentLength,
			"bytes_out":   c.Writer.Size(),
			"client_ip":   c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields["user_agent"] = ua
		}
		telemetry.Info("request.complete", fields)
	}
}
