package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	val, err := Retry(context.Background(), DefaultRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	val, err := Retry(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransient(errors.New("temporary"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	_, err := Retry(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransient(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NotFound_NoRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
	}

	_, err := Retry(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewNotFound("artist 0123456789abcdef")
	})
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call (not-found is definitive), got %d", calls)
	}
}

func TestRetry_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
	}

	_, err := Retry(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("permanent: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-transient), got %d", calls)
	}
}

func TestRetry_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	_, err := Retry(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransient(errors.New("temporary"), 503)
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation stopped the loop, got %d", calls)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var retried []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		BackoffFactor:  2.0,
		OnRetry: func(attempt int, err error) {
			retried = append(retried, attempt)
		},
	}

	_, _ = Retry(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, NewTransient(errors.New("fail"), 502)
	})

	// Called before each backoff sleep: after attempts 1 and 2, not after
	// the last.
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected callbacks for attempts [1 2], got %v", retried)
	}
}

func TestBackoff_Schedule(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 500 * time.Millisecond},
		{3, 1 * time.Second},
		{4, 2 * time.Second},
		{5, 4 * time.Second},
	}
	for _, tc := range cases {
		if got := cfg.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
	}
	if got := cfg.Backoff(10); got != 2*time.Second {
		t.Errorf("Backoff(10) = %v, want cap %v", got, 2*time.Second)
	}
}
