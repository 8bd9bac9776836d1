// Package metrics holds the Prometheus collectors for the doubt and message
// flows. All collectors are registered on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts messages written by the pipeline, by chat kind and message type.
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_messages_sent_total",
			Help: "Messages written, by chat kind and message type.",
		},
		[]string{"kind", "type"},
	)

	// DoubtClaims counts assignment attempts by outcome (won, lost).
	DoubtClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_doubt_claims_total",
			Help: "Doubt claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	DoubtTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_doubt_transitions_total",
			Help: "Doubt lifecycle transitions by target status.",
		},
		[]string{"status"},
	)

	RatingsSubmitted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studyhub_rating_value",
			Help:    "Submitted rating values.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	PresenceSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhub_presence_sessions",
			Help: "Active presence sessions in this process.",
		},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesSent,
		DoubtClaims,
		DoubtTransitions,
		RatingsSubmitted,
		PresenceSessions,
		HTTPRequests,
		HTTPLatency,
		HTTPInflight,
	)
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
