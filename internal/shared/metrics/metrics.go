package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	documentsUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Documents created, split by whether a file was attached",
		},
		[]string{"has_file"},
	)

	documentsReviewed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_reviewed_total",
			Help: "Review transitions applied, by target status",
		},
		[]string{"status"},
	)

	documentDownloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "document_downloads_total",
			Help: "Document files streamed to callers",
		},
	)

	blobCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blob_cleanup_failures_total",
			Help: "Best-effort blob deletions that failed",
		},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDuration,
		documentsUploaded,
		documentsReviewed,
		documentDownloads,
		blobCleanupFailures,
	)
}

// IncDocumentUploaded counts a created document.
func IncDocumentUploaded(hasFile bool) {
	documentsUploaded.WithLabelValues(strconv.FormatBool(hasFile)).Inc()
}

// IncDocumentReviewed counts a review transition.
func IncDocumentReviewed(status string) {
	documentsReviewed.WithLabelValues(status).Inc()
}

func IncDocumentDownload() {
	documentDownloads.Inc()
}

func IncBlobCleanupFailure() {
	blobCleanupFailures.Inc()
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
