// Package metrics holds the Prometheus instruments of the simulator.
//
// All collectors register with the default registry; Handler exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incidentsim"

var (
	// IncidentsCreated counts synthesized incidents by severity.
	IncidentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "incidents_created_total",
		Help:      "Synthesized incidents by severity.",
	}, []string{"severity"})

	// GeoResolutionFailures counts lookups that degraded to fallback coordinates.
	GeoResolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geo_resolution_failures_total",
		Help:      "Geolocation lookups that fell back to (0, 0).",
	})

	// GeoLookupDuration observes geocoding service latency.
	GeoLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geo_lookup_duration_seconds",
		Help:      "Latency of geocoding service lookups, cache misses only.",
		Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2, 5, 10},
	})

	// Alerts counts alert dispatch attempts by result (sent, failed).
	Alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Alert dispatch attempts by result.",
	}, []string{"result"})

	// Reports counts report exports by result (rendered, failed).
	Reports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Report exports by result.",
	}, []string{"result"})

	// CircuitBreakerState tracks breaker state per name: 0=closed, 1=open, 2=half-open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
	}, []string{"name"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
