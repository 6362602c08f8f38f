package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys shared by the middleware chain and feature handlers.
const (
	RequestIDKey        = "requestId"
	DocumentIDKey       = "documentId"
	StatusTransitionKey = "statusTransition"

	requestIDHeader   = "X-Request-Id"
	maxRequestIDBytes = 128
)

// RequestID reuses a well-formed inbound X-Request-Id or mints a UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFromContext fetches the request ID stored by RequestID.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(RequestIDKey)
}

// SetDocumentID tags the request log with the document being handled.
func SetDocumentID(c *gin.Context, id string) {
	c.Set(DocumentIDKey, id)
}

// SetStatusTransition tags the request log with the review outcome.
func SetStatusTransition(c *gin.Context, status string) {
	c.Set(StatusTransitionKey, status)
}
