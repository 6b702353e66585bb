package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient wrapper", NewTransient(errors.New("503"), 503), true},
		{"wrapped transient", fmt.Errorf("fetch: %w", NewTransient(errors.New("503"), 503)), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"deadline string", errors.New("Get \"x\": context deadline exceeded"), true},
		{"reset by peer string", errors.New("read: connection reset by peer"), true},
		{"not found", NewNotFound("artist"), false},
		{"plain error", errors.New("bad request"), false},
		{"context canceled", context.Canceled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFound("artist 0123456789abcdef")) {
		t.Error("expected not-found to be detected")
	}
	if !IsNotFound(fmt.Errorf("fetch: %w", NewNotFound("x"))) {
		t.Error("expected wrapped not-found to be detected")
	}
	if IsNotFound(errors.New("not found")) {
		t.Error("plain error string must not count as not-found")
	}
	if IsNotFound(nil) {
		t.Error("nil must not count as not-found")
	}
}

func TestIsTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientStatus(code) {
			t.Errorf("expected %d transient", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 422} {
		if IsTransientStatus(code) {
			t.Errorf("expected %d not transient", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("upstream 503")
	te := NewTransient(inner, 503)
	if !errors.Is(te, inner) {
		t.Error("expected errors.Is to see the wrapped error")
	}
	if te.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", te.StatusCode)
	}
}
