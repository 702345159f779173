package vision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inferenceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_requests_total",
			Help: "Total number of meter image inference calls.",
		},
		[]string{"engine", "outcome"},
	)
	inferenceDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_duration_seconds",
			Help:    "Meter image inference latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"engine"},
	)
)

func observeInference(engine string, err error, dur time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	inferenceRequestsTotal.WithLabelValues(engine, outcome).Inc()
	inferenceDurationSeconds.WithLabelValues(engine).Observe(dur.Seconds())
}
