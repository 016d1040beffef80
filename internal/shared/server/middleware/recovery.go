package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/server/respond"
	"smartcv-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 {"error":"Internal server error"}.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			metrics.IncPanic()
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"route":      c.FullPath(),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"variant":    c.GetString(VariantKey),
			})
			if c.Writer.Written() {
				// a download was already streaming; the status cannot change
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}()
		c.Next()
	}
}
