package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an upstream failure that is safe to retry: timeouts,
// 429/5xx responses, connection errors. Retry exhaustion on a transient
// error counts toward the circuit breaker's failure threshold.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransient wraps err as transient with an optional HTTP status code.
func NewTransient(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// NotFoundError marks a definitive "provider has no data" outcome. It is
// never retried, never counted as a breaker failure, and surfaces to the
// caller as an absent result.
type NotFoundError struct {
	Subject string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Subject }

// NewNotFound builds a NotFoundError for the given subject.
func NewNotFound(subject string) *NotFoundError {
	return &NotFoundError{Subject: subject}
}

// IsNotFound reports whether err marks a definitive not-found outcome.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err (or anything in its chain) is retryable:
// an explicit TransientError, a network timeout, or a connection-level
// failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Heuristics for errors flattened to strings by HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"context deadline exceeded",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientStatus reports whether an HTTP status code indicates a
// retryable server-side condition.
func IsTransientStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
