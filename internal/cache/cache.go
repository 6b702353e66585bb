// Package cache provides typed per-provider TTL caches. Each provider owns
// its own Store because TTL semantics differ per data category: listener
// counts are volatile, label data is near-static, management data barely
// changes.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a TTL cache for a single provider's values. Keyspaces are never
// shared between providers. Expired entries read as absent; the janitor
// sweep only bounds memory and never removes an unexpired entry.
type Store[T any] struct {
	inner *gocache.Cache
	ttl   time.Duration
}

// janitorInterval bounds memory by sweeping expired entries in the
// background. Correctness does not depend on it: reads check expiry.
const janitorInterval = 10 * time.Minute

// New creates a Store whose entries live for ttl.
func New[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		inner: gocache.New(ttl, janitorInterval),
		ttl:   ttl,
	}
}

// Get returns the live value for key, if any. A stale entry is treated as
// absent.
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := s.inner.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores value under key with the store's TTL, replacing any previous
// entry.
func (s *Store[T]) Set(key string, value T) {
	s.inner.Set(key, value, s.ttl)
}

// Delete removes key if present.
func (s *Store[T]) Delete(key string) {
	s.inner.Delete(key)
}

// TTL returns the store's entry lifetime.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Len returns the number of entries, expired-but-unswept included.
func (s *Store[T]) Len() int {
	return s.inner.ItemCount()
}
