package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecorder_Snapshot(t *testing.T) {
	r := NewRecorder()

	for i := 0; i < 10; i++ {
		r.Request("catalogue")
	}
	r.CacheHit("catalogue")
	r.CacheHit("catalogue")
	r.Success("catalogue", 100*time.Millisecond)
	r.Success("catalogue", 300*time.Millisecond)
	r.Failure("catalogue", 200*time.Millisecond)
	r.Rejection("catalogue")

	snap := r.Snapshot()
	s, ok := snap["catalogue"]
	if !ok {
		t.Fatal("expected catalogue stats")
	}

	if s.Requests != 10 {
		t.Errorf("requests = %d, want 10", s.Requests)
	}
	if s.Successes != 2 || s.Failures != 1 || s.Rejections != 1 || s.CacheHits != 2 {
		t.Errorf("unexpected counters: %+v", s)
	}
	if want := 2.0 / 3.0; s.SuccessRate != want {
		t.Errorf("success rate = %v, want %v", s.SuccessRate, want)
	}
	if want := 1.0 / 3.0; s.FailureRate != want {
		t.Errorf("failure rate = %v, want %v", s.FailureRate, want)
	}
	if want := 0.2; s.CacheHitRate != want {
		t.Errorf("cache hit rate = %v, want %v", s.CacheHitRate, want)
	}
	if want := 0.2; s.AvgLatencySeconds != want {
		t.Errorf("avg latency = %v, want %v", s.AvgLatencySeconds, want)
	}
}

func TestRecorder_EmptyProviderRates(t *testing.T) {
	r := NewRecorder()
	r.Request("listeners")

	s := r.Snapshot()["listeners"]
	if s.SuccessRate != 0 || s.FailureRate != 0 || s.AvgLatencySeconds != 0 {
		t.Errorf("expected zero rates with no completed fetches, got %+v", s)
	}
}

func TestRecorder_IndependentProviders(t *testing.T) {
	r := NewRecorder()
	r.Success("a", time.Millisecond)
	r.Failure("b", time.Millisecond)

	snap := r.Snapshot()
	if snap["a"].Failures != 0 {
		t.Error("provider a must not see provider b's failures")
	}
	if snap["b"].Successes != 0 {
		t.Error("provider b must not see provider a's successes")
	}
}

func TestRecorder_ConcurrentIncrements(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Request("listeners")
				r.Success("listeners", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	s := r.Snapshot()["listeners"]
	if s.Requests != 2000 || s.Successes != 2000 {
		t.Errorf("lost increments: %+v", s)
	}
}
