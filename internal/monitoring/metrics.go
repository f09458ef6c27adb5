package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt results recorded for extractor invocations
const (
	AttemptOK        = "ok"
	AttemptFailed    = "failed"
	AttemptTimeout   = "timeout"
	AttemptCancelled = "cancelled"
)

var (
	// RequestsTotal tracks finished download requests by outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytmp3_requests_total",
			Help: "Total number of download requests",
		},
		[]string{"outcome"},
	)

	// RequestDuration tracks end to end request duration by outcome
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytmp3_request_duration_seconds",
			Help:    "Download request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 11), // 0.5s to ~8.5min
		},
		[]string{"outcome"},
	)

	// InFlightRequests tracks requests currently inside the pipeline
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytmp3_in_flight_requests",
			Help: "Number of download requests in progress",
		},
	)

	// ExtractorAttemptsTotal tracks extractor invocations by operation, profile and result
	ExtractorAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytmp3_extractor_attempts_total",
			Help: "Total number of extractor invocations",
		},
		[]string{"operation", "profile", "result"},
	)

	// StageDuration tracks pipeline stage duration
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytmp3_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 13), // 0.1s to ~7min
		},
		[]string{"stage"},
	)

	// DeliveredBytesTotal tracks bytes streamed to clients
	DeliveredBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmp3_delivered_bytes_total",
			Help: "Total bytes streamed to clients",
		},
	)

	// CleanupFailuresTotal tracks artifacts or slots that could not be removed
	CleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmp3_cleanup_failures_total",
			Help: "Total number of failed artifact removals",
		},
	)
)

// RecordRequestStart records a request entering the pipeline
func RecordRequestStart() {
	InFlightRequests.Inc()
}

// RecordRequestFinished records a request leaving the pipeline
func RecordRequestFinished(outcome string, duration time.Duration) {
	RequestsTotal.WithLabelValues(outcome).Inc()
	RequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	InFlightRequests.Dec()
}

// RecordAttempt records one extractor invocation
func RecordAttempt(operation, profile, result string) {
	ExtractorAttemptsTotal.WithLabelValues(operation, profile, result).Inc()
}

// RecordStage records the duration of one pipeline stage
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDelivered records bytes written to a client
func RecordDelivered(bytes int64) {
	DeliveredBytesTotal.Add(float64(bytes))
}

// RecordCleanupFailure records a failed removal
func RecordCleanupFailure() {
	CleanupFailuresTotal.Inc()
}
