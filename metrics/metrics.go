// Package metrics holds Prometheus collectors for upstream requests made by openers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK             = "ok"
	OutcomeNotModified    = "not_modified"
	OutcomeChallenge      = "challenge"
	OutcomeHTTPError      = "http_error"
	OutcomeLocalFile      = "local_file"
	OutcomeUnknownScheme  = "unknown_scheme"
	OutcomeTransportError = "transport_error"
	OutcomeCircuitOpen    = "circuit_open"
)

var (
	// OpenTotal counts open operations by outcome
	OpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authopener_open_total",
			Help: "Total number of open operations by outcome",
		},
		[]string{"outcome"},
	)

	// UpstreamDuration tracks upstream round trip duration in seconds
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authopener_upstream_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"method"},
	)
)

// Handler returns HTTP handler that exposes collectors of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
