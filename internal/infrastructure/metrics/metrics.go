package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	KeysIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "keys_issued_total",
			Help:      "Total API keys issued",
		},
	)

	KeyValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "key_validations_total",
			Help:      "Total key validation checks",
		},
		[]string{"outcome"},
	)

	UsageIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "usage_increments_total",
			Help:      "Total usage increment attempts",
		},
		[]string{"outcome"},
	)

	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "summaries_total",
			Help:      "Total summarization requests",
		},
		[]string{"model", "status"},
	)

	SummaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skim",
			Subsystem: "keys_api",
			Name:      "summary_duration_seconds",
			Help:      "End to end summarization duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordValidation records one key validation check
func RecordValidation(outcome string) {
	KeyValidationsTotal.WithLabelValues(outcome).Inc()
}

// RecordUsageIncrement records one usage increment attempt
func RecordUsageIncrement(outcome string) {
	UsageIncrementsTotal.WithLabelValues(outcome).Inc()
}

// RecordSummary records a summarization request
func RecordSummary(model, status string, durationSec float64) {
	SummariesTotal.WithLabelValues(model, status).Inc()
	SummaryDuration.Observe(durationSec)
}
