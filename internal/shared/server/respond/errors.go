package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/telemetry"
)

// Error sends a failure envelope and logs it.
func Error(c *gin.Context, status int, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Errors:  details,
	})
}

// FromError maps an error kind to a status code. Messages only come from apperr values;
// anything else is logged and answered with fallback.
func FromError(c *gin.Context, err error, fallback string) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		var details interface{}
		if len(ve.Fields) > 0 {
			details = ve.Fields
		}
		Error(c, http.StatusBadRequest, apperr.Message(err), details)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUpstream):
		status = http.StatusBadGateway
	}

	msg := apperr.Message(err)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway || msg == "" {
		telemetry.Error("http.internal_error", map[string]any{
			"error":      err.Error(),
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("requestId"),
		})
		if status == http.StatusInternalServerError || msg == "" {
			msg = fallback
		}
	}
	Error(c, status, msg, nil)
}
