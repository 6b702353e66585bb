package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
	"github.com/crescendo-data/enrich-cli/pkg/streamcount"
)

// ListenersName identifies the listener-count provider.
const ListenersName = "listeners"

// ListenersConfig tunes the listener-count provider on top of the shared
// contract config.
type ListenersConfig struct {
	Config

	// BatchSize is the maximum number of artist URLs per upstream scrape
	// job. Default: 50.
	BatchSize int

	// PollInterval and PollCap tune scrape-job polling.
	PollInterval time.Duration
	PollCap      time.Duration
}

// Listeners resolves monthly listener estimates through the scraping
// service. Single lookups submit a one-URL job; batch lookups amortize one
// job across up to BatchSize artists and demultiplex the results back into
// individual cache entries.
type Listeners struct {
	p         *Provider[int64]
	client    streamcount.Client
	batchSize int
	pollOpts  []streamcount.PollOption
}

// NewListeners builds the listener-count provider.
func NewListeners(client streamcount.Client, cfg ListenersConfig, rec *metrics.Recorder) *Listeners {
	if cfg.Name == "" {
		cfg.Name = ListenersName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	var pollOpts []streamcount.PollOption
	if cfg.PollInterval > 0 {
		pollOpts = append(pollOpts, streamcount.WithPollInterval(cfg.PollInterval))
	}
	if cfg.PollCap > 0 {
		pollOpts = append(pollOpts, streamcount.WithPollCap(cfg.PollCap))
	}

	l := &Listeners{
		client:    client,
		batchSize: cfg.BatchSize,
		pollOpts:  pollOpts,
	}
	l.p = New(cfg.Config, rec, l.fetchOne)
	return l
}

// Name returns the provider identifier.
func (l *Listeners) Name() string { return l.p.Name() }

// CircuitState returns the provider's breaker state.
func (l *Listeners) CircuitState() resilience.State { return l.p.CircuitState() }

// Get resolves the listener count for one artist through the shared
// contract.
func (l *Listeners) Get(ctx context.Context, id string, forceRefresh bool) model.Result[int64] {
	return l.p.Get(ctx, id, forceRefresh)
}

// fetchOne submits a single-URL scrape job and waits for its result.
func (l *Listeners) fetchOne(ctx context.Context, id string) (int64, []model.Evidence, error) {
	url := model.CanonicalArtistURL(id)
	counts, jobID, err := l.runJob(ctx, []string{url})
	if err != nil {
		return 0, nil, err
	}
	n, ok := counts[url]
	if !ok {
		return 0, nil, resilience.NewNotFound("listener estimate for " + id)
	}
	return n, []model.Evidence{{Source: ListenersName, Ref: url, Note: "scrape job " + jobID}}, nil
}

// GetBatch resolves listener counts for many artists. Cache hits are served
// directly; the remainder is chunked into upstream jobs of at most
// BatchSize URLs, each guarded by the provider's breaker and retry policy.
// The returned map has an entry for every input ID.
func (l *Listeners) GetBatch(ctx context.Context, ids []string, forceRefresh bool) map[string]model.Result[int64] {
	out := make(map[string]model.Result[int64], len(ids))

	var missing []string
	for _, id := range ids {
		l.p.rec.Request(l.p.name)
		if !forceRefresh {
			if r, ok := l.p.cache.Get(id); ok {
				l.p.rec.CacheHit(l.p.name)
				out[id] = r
				continue
			}
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += l.batchSize {
		end := min(start+l.batchSize, len(missing))
		l.fetchChunk(ctx, missing[start:end], out)
	}

	return out
}

// fetchChunk runs one upstream job for a chunk of IDs and demultiplexes the
// results into out and the cache.
func (l *Listeners) fetchChunk(ctx context.Context, ids []string, out map[string]model.Result[int64]) {
	if err := l.p.breaker.Allow(); err != nil {
		for _, id := range ids {
			l.p.rec.Rejection(l.p.name)
			out[id] = model.Absent[int64](l.p.name, "circuit breaker open")
		}
		return
	}

	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = model.CanonicalArtistURL(id)
	}

	type jobResult struct {
		counts map[string]int64
		jobID  string
	}

	start := time.Now()
	res, err := resilience.Retry(ctx, l.p.retry, func(ctx context.Context) (jobResult, error) {
		fctx := ctx
		if l.p.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, l.p.timeout)
			defer cancel()
		}
		counts, jobID, ferr := l.runJob(fctx, urls)
		return jobResult{counts: counts, jobID: jobID}, ferr
	})
	latency := time.Since(start)
	l.p.breaker.Record(err)

	if err != nil {
		l.p.rec.Failure(l.p.name, latency)
		zap.L().Warn("listener batch fetch exhausted",
			zap.Int("artists", len(ids)),
			zap.Error(err),
		)
		for _, id := range ids {
			out[id] = model.Absent[int64](l.p.name, "fetch failed: "+err.Error())
		}
		return
	}

	l.p.rec.Success(l.p.name, latency)
	for i, id := range ids {
		n, ok := res.counts[urls[i]]
		if !ok {
			// The scraper read the page but found no listener figure. Not
			// cached: the next refresh may succeed.
			out[id] = model.Absent[int64](l.p.name, "no listener estimate")
			continue
		}
		r := model.Found(l.p.name, n, l.p.confidence,
			model.Evidence{Source: ListenersName, Ref: urls[i], Note: "scrape job " + res.jobID})
		l.p.cache.Set(id, r)
		out[id] = r
	}
}

// runJob submits one scrape job and polls it to completion, classifying
// upstream errors for the retry and breaker layers.
func (l *Listeners) runJob(ctx context.Context, urls []string) (map[string]int64, string, error) {
	job, err := l.client.SubmitJob(ctx, streamcount.JobRequest{URLs: urls})
	if err != nil {
		return nil, "", classifyStreamcountErr(err)
	}

	status, err := streamcount.PollJob(ctx, l.client, job.ID, l.pollOpts...)
	if err != nil {
		return nil, "", classifyStreamcountErr(err)
	}

	counts := make(map[string]int64, len(status.Results))
	for _, r := range status.Results {
		counts[r.URL] = r.Listeners
	}
	return counts, job.ID, nil
}

func classifyStreamcountErr(err error) error {
	var apiErr *streamcount.APIError
	if errors.As(err, &apiErr) {
		if resilience.IsTransientStatus(apiErr.StatusCode) {
			return resilience.NewTransient(err, apiErr.StatusCode)
		}
		if apiErr.StatusCode == 404 {
			return resilience.NewNotFound("scrape job")
		}
	}
	return err
}
