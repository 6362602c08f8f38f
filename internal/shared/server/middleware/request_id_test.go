package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"minted when absent", "", false},
		{"reused when well formed", "trace-abc-123", true},
		{"replaced when too long", strings.Repeat("x", maxRequestIDBytes+1), false},
		{"replaced when it has spaces", "two words", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/id", nil)
			if tc.inbound != "" {
				req.Header.Set(requestIDHeader, tc.inbound)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			got := resp.Header().Get(requestIDHeader)
			if got != resp.Body.String() {
				t.Fatalf("header %q and context %q differ", got, resp.Body.String())
			}
			if tc.keep {
				if got != tc.inbound {
					t.Fatalf("expected inbound id to be kept, got %q", got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected minted uuid, got %q", got)
			}
		})
	}
}
