package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/telemetry"
)

const metricsPath = "/metrics"

// Logging emits one request.complete entry per request. Server errors log at
// error level and client errors at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            status,
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"document_id":       c.GetString(DocumentIDKey),
			"bytes":             c.Writer.Size(),
			"client_ip":         c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
