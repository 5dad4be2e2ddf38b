// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the gateway.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	intentSources   *prometheus.CounterVec
	sweptRecords    prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_guard_requests_total",
				Help: "Total number of API requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),

		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_guard_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
			},
			[]string{"endpoint"},
		),

		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_guard_rejections_total",
				Help: "Total number of rejected requests by error code",
			},
			[]string{"endpoint", "code"},
		),

		intentSources: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_guard_intent_results_total",
				Help: "Total number of classifications by result source",
			},
			[]string{"source"},
		),

		sweptRecords: f.NewCounter(
			prometheus.CounterOpts{
				Name: "intake_guard_ratelimit_swept_records_total",
				Help: "Total number of expired rate limit records removed by the sweeper",
			},
		),
	}
}

// RecordRequest records a finished request.
func (m *Metrics) RecordRequest(endpoint string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordRejection records a request refused with the given error code.
func (m *Metrics) RecordRejection(endpoint, code string) {
	m.rejections.WithLabelValues(endpoint, code).Inc()
}

// RecordIntentSource records whether a classification came from the model or the fallback.
func (m *Metrics) RecordIntentSource(source string) {
	m.intentSources.WithLabelValues(source).Inc()
}

// RecordSweep records the number of records a sweep removed.
func (m *Metrics) RecordSweep(removed int) {
	m.sweptRecords.Add(float64(removed))
}
