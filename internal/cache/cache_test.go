package cache

import (
	"testing"
	"time"
)

func TestStore_SetGet(t *testing.T) {
	s := New[int64](1 * time.Hour)

	if _, ok := s.Get("a"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Set("a", 123)
	got, ok := s.Get("a")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got != 123 {
		t.Errorf("expected 123, got %d", got)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := New[string](20 * time.Millisecond)

	s.Set("k", "v")
	if _, ok := s.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("expected miss after TTL elapsed")
	}
}

func TestStore_Delete(t *testing.T) {
	s := New[string](1 * time.Hour)
	s.Set("k", "v")
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestStore_OverwriteRefreshes(t *testing.T) {
	s := New[int](1 * time.Hour)
	s.Set("k", 1)
	s.Set("k", 2)
	got, ok := s.Get("k")
	if !ok || got != 2 {
		t.Errorf("expected refreshed value 2, got %d (ok=%v)", got, ok)
	}
}

func TestStore_StructValues(t *testing.T) {
	type rec struct {
		Name  string
		Count int64
	}
	s := New[rec](1 * time.Hour)
	s.Set("k", rec{Name: "x", Count: 9})
	got, ok := s.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "x" || got.Count != 9 {
		t.Errorf("unexpected value %+v", got)
	}
}

func TestStore_TTLAndLen(t *testing.T) {
	s := New[int](42 * time.Minute)
	if s.TTL() != 42*time.Minute {
		t.Errorf("expected TTL 42m, got %v", s.TTL())
	}
	s.Set("a", 1)
	s.Set("b", 2)
	if s.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Len())
	}
}
