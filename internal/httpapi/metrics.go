package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	readingOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reading_operations_total",
			Help: "Reading API operations by outcome error code (OK on success).",
		},
		[]string{"operation", "outcome"},
	)
)

func observeHTTPRequest(r *http.Request, status int, dur time.Duration) {
	route := routeLabel(r)
	method := r.Method

	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method).Observe(dur.Seconds())
}

func observeOutcome(operation, outcome string) {
	readingOutcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// routeLabel uses the matched mux pattern so customer codes never become label values
func routeLabel(r *http.Request) string {
	switch r.Pattern {
	case "":
		return "other"
	case "POST /api/upload":
		return "api_upload"
	case "PATCH /api/confirm":
		return "api_confirm"
	case "GET /api/{customerCode}/list":
		return "api_list"
	case "GET /healthz":
		return "healthz"
	case "GET /metrics":
		return "metrics"
	default:
		return "static"
	}
}
