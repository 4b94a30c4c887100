package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	OutcomeResponse       = "response" // any HTTP status, 4xx and 5xx included
	OutcomeTransportError = "transport_error"
	OutcomeEncodeError    = "encode_error"
)

// Registry holds every wget metric. It is separate from the default registry
// so embedding programs decide whether and where to expose it.
var Registry = prometheus.NewRegistry()

var (
	// BuildersActive counts builders created and not yet closed.
	BuildersActive = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "wget_builders_active",
		Help: "Number of request builders alive",
	})

	RequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "wget_requests_total",
			Help: "Total number of requests issued, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	RequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wget_request_duration_seconds",
			Help:    "Time spent in the transport per request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// ObserveRequest records one finished request.
func ObserveRequest(method, outcome string, took time.Duration) {
	RequestsTotal.WithLabelValues(method, outcome).Inc()
	if outcome != OutcomeEncodeError {
		RequestDuration.WithLabelValues(method).Observe(took.Seconds())
	}
}
