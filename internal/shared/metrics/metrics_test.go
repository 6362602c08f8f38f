package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHandlerExposesDomainCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/metrics", Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	IncDocumentUploaded(true)
	IncDocumentReviewed("approved")
	IncDocumentDownload()
	IncBlobCleanupFailure()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, name := range []string{
		`documents_uploaded_total{has_file="true"}`,
		`documents_reviewed_total{status="approved"}`,
		"document_downloads_total",
		"blob_cleanup_failures_total",
		`http_requests_total{method="GET",route="/ping",status="200"}`,
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
