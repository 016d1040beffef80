package respond

import (
	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/shared/telemetry"
)

// Error sends {"error": message} and logs the failure with its internal code.
func Error(c *gin.Context, status int, code, message string) {
	ErrorWith(c, status, code, message, nil)
}

// ErrorWith behaves like Error and merges extra top-level fields into the body.
func ErrorWith(c *gin.Context, status int, code, message string, extra gin.H) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = message
	c.AbortWithStatusJSON(status, body)
}
