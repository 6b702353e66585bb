// Package metrics tracks per-provider counters for the enrichment core and
// exposes point-in-time snapshots. Counters are observational only and never
// gate control flow.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProviderStats is the snapshot for one provider.
type ProviderStats struct {
	Requests          int64   `json:"requests"`
	Successes         int64   `json:"successes"`
	Failures          int64   `json:"failures"`
	Rejections        int64   `json:"rejections"`
	CacheHits         int64   `json:"cache_hits"`
	SuccessRate       float64 `json:"success_rate"`
	FailureRate       float64 `json:"failure_rate"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
	CircuitState      string  `json:"circuit_state,omitempty"`
}

// counters accumulates one provider's totals. All fields are atomics so
// parallel provider calls can increment without a shared lock.
type counters struct {
	requests   atomic.Int64
	successes  atomic.Int64
	failures   atomic.Int64
	rejections atomic.Int64
	cacheHits  atomic.Int64
	latencyNS  atomic.Int64
	samples    atomic.Int64
}

// Recorder tracks counters for any number of providers.
type Recorder struct {
	mu        sync.RWMutex
	providers map[string]*counters
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{providers: make(map[string]*counters)}
}

func (r *Recorder) get(provider string) *counters {
	r.mu.RLock()
	c, ok := r.providers[provider]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.providers[provider]; ok {
		return c
	}
	c = &counters{}
	r.providers[provider] = c
	return c
}

// Request counts one provider call, cache hits included.
func (r *Recorder) Request(provider string) {
	r.get(provider).requests.Add(1)
	promRequests.WithLabelValues(provider).Inc()
}

// Success counts a completed fetch and records its latency.
func (r *Recorder) Success(provider string, latency time.Duration) {
	c := r.get(provider)
	c.successes.Add(1)
	c.latencyNS.Add(int64(latency))
	c.samples.Add(1)
	promSuccesses.WithLabelValues(provider).Inc()
	promLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// Failure counts an exhausted fetch and records its latency.
func (r *Recorder) Failure(provider string, latency time.Duration) {
	c := r.get(provider)
	c.failures.Add(1)
	c.latencyNS.Add(int64(latency))
	c.samples.Add(1)
	promFailures.WithLabelValues(provider).Inc()
	promLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// Rejection counts a call skipped because the circuit was open. Rejections
// are not fetch failures.
func (r *Recorder) Rejection(provider string) {
	r.get(provider).rejections.Add(1)
	promRejections.WithLabelValues(provider).Inc()
}

// CacheHit counts a request served from cache.
func (r *Recorder) CacheHit(provider string) {
	r.get(provider).cacheHits.Add(1)
	promCacheHits.WithLabelValues(provider).Inc()
}

// CircuitState records a breaker state change for export (0=closed,
// 1=open, 2=half-open).
func (r *Recorder) CircuitState(provider string, state int) {
	promCircuitState.WithLabelValues(provider).Set(float64(state))
}

// Snapshot returns per-provider stats. Rates are computed over completed
// fetches; the circuit state column is filled in by the caller, which owns
// the breakers.
func (r *Recorder) Snapshot() map[string]ProviderStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ProviderStats, len(r.providers))
	for name, c := range r.providers {
		s := ProviderStats{
			Requests:   c.requests.Load(),
			Successes:  c.successes.Load(),
			Failures:   c.failures.Load(),
			Rejections: c.rejections.Load(),
			CacheHits:  c.cacheHits.Load(),
		}
		if done := s.Successes + s.Failures; done > 0 {
			s.SuccessRate = float64(s.Successes) / float64(done)
			s.FailureRate = float64(s.Failures) / float64(done)
		}
		if s.Requests > 0 {
			s.CacheHitRate = float64(s.CacheHits) / float64(s.Requests)
		}
		if n := c.samples.Load(); n > 0 {
			s.AvgLatencySeconds = (time.Duration(c.latencyNS.Load()) / time.Duration(n)).Seconds()
		}
		out[name] = s
	}
	return out
}
