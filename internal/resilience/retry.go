package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls bounded exponential-backoff retries around one fetch.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps any single backoff delay. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor scales the delay after each retry. Default: 2.0.
	BackoffFactor float64

	// ShouldRetry decides whether an error is worth another attempt. If nil,
	// transient errors are retried and definitive not-found is returned
	// immediately.
	ShouldRetry func(err error) bool

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the standard provider retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = func(err error) bool {
			return IsTransient(err) && !IsNotFound(err)
		}
	}
	return cfg
}

// Backoff computes the delay before the given attempt number:
// InitialBackoff * BackoffFactor^(attempt-2), capped at MaxBackoff. The
// first attempt never waits.
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-2))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	return time.Duration(d)
}

// Retry runs fn up to cfg.MaxAttempts times with exponential backoff between
// attempts. Non-retryable errors and context cancellation end the loop
// immediately; the last error is returned on exhaustion.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(cfg.Backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback logging each retry for a provider.
func RetryLogger(providerName string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying provider fetch",
			zap.String("provider", providerName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
