// Package provider implements the shared resilience contract around each
// external data source: TTL cache, circuit breaker, retry with backoff, and
// metrics, wrapped around one fetch operation. Concrete providers supply
// only the fetch body and their own TTL and confidence.
package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crescendo-data/enrich-cli/internal/cache"
	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
)

// FetchFunc performs one uncached, unguarded fetch for an artist ID. It
// returns the value plus structured evidence, or an error classified by the
// resilience taxonomy (transient, not-found, or unknown).
type FetchFunc[T any] func(ctx context.Context, id string) (T, []model.Evidence, error)

// Config holds the per-provider knobs of the shared contract.
type Config struct {
	// Name identifies the provider in results, metrics, and logs.
	Name string

	// TTL is the cache lifetime for this provider's data category.
	TTL time.Duration

	// FetchTimeout bounds each individual fetch attempt. Zero means no
	// per-attempt timeout beyond the caller's context.
	FetchTimeout time.Duration

	// Confidence is attached to every present result; it encodes how
	// trustworthy this source is (authoritative API 1.0, scraped less).
	Confidence float64

	// CacheAbsent caches definitive not-found outcomes for the TTL. Useful
	// when source coverage is stable and misses are the common case.
	CacheAbsent bool

	Retry   resilience.RetryConfig
	Breaker resilience.BreakerConfig

	// SharedBreaker, when set, is used instead of constructing a breaker
	// from the Breaker config. It lets one logical provider with several
	// fetch kinds share a single failure domain.
	SharedBreaker *resilience.Breaker
}

// Provider is the generic contract instance for one fetch kind. Each
// Provider owns its cache and (unless shared) its breaker; nothing here is
// global, so one provider's outage cannot gate another's calls.
type Provider[T any] struct {
	name        string
	confidence  float64
	timeout     time.Duration
	cacheAbsent bool

	fetch   FetchFunc[T]
	cache   *cache.Store[model.Result[T]]
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	rec     *metrics.Recorder
}

// New builds a Provider from cfg around the given fetch.
func New[T any](cfg Config, rec *metrics.Recorder, fetch FetchFunc[T]) *Provider[T] {
	name := cfg.Name

	breaker := cfg.SharedBreaker
	if breaker == nil {
		bcfg := cfg.Breaker
		if bcfg.ShouldTrip == nil {
			bcfg.ShouldTrip = func(err error) bool {
				return err != nil && !resilience.IsNotFound(err)
			}
		}
		prev := bcfg.OnStateChange
		bcfg.OnStateChange = func(from, to resilience.State) {
			zap.L().Info("provider circuit state change",
				zap.String("provider", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
			rec.CircuitState(name, int(to))
			if prev != nil {
				prev(from, to)
			}
		}
		breaker = resilience.NewBreaker(bcfg)
	}

	retry := cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(name)
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			return resilience.IsTransient(err) && !resilience.IsNotFound(err)
		}
	}

	return &Provider[T]{
		name:        name,
		confidence:  cfg.Confidence,
		timeout:     cfg.FetchTimeout,
		cacheAbsent: cfg.CacheAbsent,
		fetch:       fetch,
		cache:       cache.New[model.Result[T]](cfg.TTL),
		breaker:     breaker,
		retry:       retry,
		rec:         rec,
	}
}

// Name returns the provider identifier.
func (p *Provider[T]) Name() string { return p.name }

// CircuitState returns the provider's current breaker state.
func (p *Provider[T]) CircuitState() resilience.State { return p.breaker.State() }

type fetched[T any] struct {
	value    T
	evidence []model.Evidence
}

// Get runs the provider contract for one artist ID:
//
//  1. Cache read (skipped on forceRefresh; the write still happens).
//  2. Circuit breaker gate — an open circuit returns absent immediately.
//  3. Retry-wrapped fetch with a per-attempt timeout.
//  4. Outcome bookkeeping: breaker, cache, metrics.
//
// Get never returns an error: fetch failures become absent results with an
// explanatory note.
func (p *Provider[T]) Get(ctx context.Context, id string, forceRefresh bool) model.Result[T] {
	p.rec.Request(p.name)

	if !forceRefresh {
		if r, ok := p.cache.Get(id); ok {
			p.rec.CacheHit(p.name)
			return r
		}
	}

	if err := p.breaker.Allow(); err != nil {
		p.rec.Rejection(p.name)
		return model.Absent[T](p.name, "circuit breaker open")
	}

	start := time.Now()
	res, err := resilience.Retry(ctx, p.retry, func(ctx context.Context) (fetched[T], error) {
		fctx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		v, ev, ferr := p.fetch(fctx, id)
		return fetched[T]{value: v, evidence: ev}, ferr
	})
	latency := time.Since(start)
	p.breaker.Record(err)

	if err != nil {
		if resilience.IsNotFound(err) {
			p.rec.Success(p.name, latency)
			r := model.Absent[T](p.name, "provider has no data")
			if p.cacheAbsent {
				p.cache.Set(id, r)
			}
			return r
		}
		p.rec.Failure(p.name, latency)
		zap.L().Warn("provider fetch exhausted",
			zap.String("provider", p.name),
			zap.String("artist", id),
			zap.Error(err),
		)
		return model.Absent[T](p.name, "fetch failed: "+err.Error())
	}

	p.rec.Success(p.name, latency)
	r := model.Found(p.name, res.value, p.confidence, res.evidence...)
	p.cache.Set(id, r)
	return r
}
