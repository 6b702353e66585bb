package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus mirrors of the recorder counters, labelled by provider.
var (
	promRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_provider_requests_total",
		Help: "Provider calls, cache hits included",
	}, []string{"provider"})

	promSuccesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_provider_successes_total",
		Help: "Provider fetches that completed successfully",
	}, []string{"provider"})

	promFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_provider_failures_total",
		Help: "Provider fetches that exhausted their retries",
	}, []string{"provider"})

	promRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_provider_rejections_total",
		Help: "Provider calls rejected by an open circuit breaker",
	}, []string{"provider"})

	promCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_provider_cache_hits_total",
		Help: "Provider calls served from the TTL cache",
	}, []string{"provider"})

	promLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrich_provider_fetch_duration_seconds",
		Help:    "Provider fetch latency, retries included",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	promCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enrich_provider_circuit_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"provider"})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
