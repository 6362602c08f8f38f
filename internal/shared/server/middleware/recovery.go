package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope without exposing the panic value.
// A client that hung up mid-response gets no body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			fields := map[string]any{
				"request_id":  RequestIDFromContext(c),
				"route":       c.FullPath(),
				"method":      c.Request.Method,
				"user_id":     UserIDFromContext(c),
				"document_id": c.GetString(DocumentIDKey),
				"panic":       rec,
			}
			if err, ok := rec.(error); ok && clientGone(err) {
				telemetry.Warn("request.client_gone", fields)
				c.Abort()
				return
			}
			fields["stack"] = string(debug.Stack())
			telemetry.Error("request.panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "Internal server error", nil)
		}()
		c.Next()
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
