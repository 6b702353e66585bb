package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
	"github.com/crescendo-data/enrich-cli/pkg/streamcount"
)

// fakeScraper completes every job immediately with the configured counts.
type fakeScraper struct {
	counts    map[string]int64 // url -> listeners
	jobs      int
	submitted [][]string
	submitErr error
}

func (f *fakeScraper) SubmitJob(_ context.Context, req streamcount.JobRequest) (*streamcount.JobResponse, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.jobs++
	f.submitted = append(f.submitted, req.URLs)
	return &streamcount.JobResponse{ID: "job-1"}, nil
}

func (f *fakeScraper) GetJobStatus(_ context.Context, _ string) (*streamcount.JobStatusResponse, error) {
	var results []streamcount.URLListens
	for _, urls := range f.submitted {
		for _, u := range urls {
			if n, ok := f.counts[u]; ok {
				results = append(results, streamcount.URLListens{URL: u, Listeners: n})
			}
		}
	}
	return &streamcount.JobStatusResponse{Status: "completed", Results: results}, nil
}

func listenersConfig() ListenersConfig {
	return ListenersConfig{
		Config: Config{
			TTL:        time.Hour,
			Confidence: 0.8,
			Retry: resilience.RetryConfig{
				MaxAttempts:    1,
				InitialBackoff: time.Millisecond,
			},
			Breaker: resilience.BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      time.Minute,
			},
		},
		BatchSize:    2,
		PollInterval: time.Millisecond,
	}
}

func TestListeners_GetSingle(t *testing.T) {
	id := testArtistID
	fake := &fakeScraper{counts: map[string]int64{
		model.CanonicalArtistURL(id): 1500000,
	}}
	l := NewListeners(fake, listenersConfig(), metrics.NewRecorder())

	r := l.Get(context.Background(), id, false)
	if !r.Present || r.Value != 1500000 {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", r.Confidence)
	}
}

func TestListeners_GetBatch_DemuxesAndCaches(t *testing.T) {
	ids := []string{
		"0123456789abcdefAAAA",
		"0123456789abcdefBBBB",
		"0123456789abcdefCCCC",
	}
	counts := map[string]int64{}
	for i, id := range ids {
		counts[model.CanonicalArtistURL(id)] = int64((i + 1) * 1000)
	}
	fake := &fakeScraper{counts: counts}
	rec := metrics.NewRecorder()
	l := NewListeners(fake, listenersConfig(), rec)

	out := l.GetBatch(context.Background(), ids, false)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	for i, id := range ids {
		r := out[id]
		if !r.Present || r.Value != int64((i+1)*1000) {
			t.Errorf("result for %s: %+v", id, r)
		}
	}

	// Batch size 2 splits 3 artists into 2 upstream jobs.
	if fake.jobs != 2 {
		t.Errorf("expected 2 jobs, got %d", fake.jobs)
	}

	// Each artist landed in the cache individually.
	r := l.Get(context.Background(), ids[0], false)
	if !r.Present || r.Value != 1000 {
		t.Fatalf("expected cached entry, got %+v", r)
	}
	if fake.jobs != 2 {
		t.Errorf("single get after batch must hit cache, jobs=%d", fake.jobs)
	}
}

func TestListeners_GetBatch_MissingURLAbsent(t *testing.T) {
	known := "0123456789abcdefAAAA"
	unknown := "0123456789abcdefBBBB"
	fake := &fakeScraper{counts: map[string]int64{
		model.CanonicalArtistURL(known): 500,
	}}
	l := NewListeners(fake, listenersConfig(), metrics.NewRecorder())

	out := l.GetBatch(context.Background(), []string{known, unknown}, false)
	if !out[known].Present {
		t.Errorf("expected present result for %s", known)
	}
	r := out[unknown]
	if r.Present {
		t.Errorf("expected absent result for %s", unknown)
	}
	if r.AbsentNote() != "no listener estimate" {
		t.Errorf("unexpected note %q", r.AbsentNote())
	}

	// A no-estimate miss is not cached; a later call fetches again.
	jobsBefore := fake.jobs
	_ = l.Get(context.Background(), unknown, false)
	if fake.jobs != jobsBefore+1 {
		t.Error("expected refetch for uncached miss")
	}
}

func TestListeners_GetBatch_FailureMarksWholeChunk(t *testing.T) {
	fake := &fakeScraper{submitErr: errors.New("scraper down")}
	l := NewListeners(fake, listenersConfig(), metrics.NewRecorder())

	ids := []string{"0123456789abcdefAAAA", "0123456789abcdefBBBB"}
	out := l.GetBatch(context.Background(), ids, false)
	for _, id := range ids {
		if out[id].Present {
			t.Errorf("expected absent result for %s", id)
		}
	}
}

func TestListeners_GetBatch_RejectedWhenOpen(t *testing.T) {
	fake := &fakeScraper{submitErr: errors.New("scraper down")}
	cfg := listenersConfig()
	cfg.Breaker.FailureThreshold = 1
	rec := metrics.NewRecorder()
	l := NewListeners(fake, cfg, rec)

	// First chunk fails and opens the circuit.
	_ = l.GetBatch(context.Background(), []string{"0123456789abcdefAAAA"}, false)
	if l.CircuitState() != resilience.StateOpen {
		t.Fatalf("expected open circuit, got %s", l.CircuitState())
	}

	out := l.GetBatch(context.Background(), []string{"0123456789abcdefBBBB"}, false)
	r := out["0123456789abcdefBBBB"]
	if r.Present || r.AbsentNote() != "circuit breaker open" {
		t.Errorf("expected breaker rejection, got %+v", r)
	}

	s := rec.Snapshot()[ListenersName]
	if s.Rejections != 1 {
		t.Errorf("expected 1 rejection, got %d", s.Rejections)
	}
}
