package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/crescendo-data/enrich-cli/internal/enrich"
	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/provider"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
	"github.com/crescendo-data/enrich-cli/pkg/catalog"
	"github.com/crescendo-data/enrich-cli/pkg/knowledge"
	"github.com/crescendo-data/enrich-cli/pkg/streamcount"
)

// serviceEnv holds the initialized clients, providers, and the enrichment
// service needed by the enrich/batch/serve commands.
type serviceEnv struct {
	Service *enrich.Service
	Metrics *metrics.Recorder
}

// initService validates config, builds the three upstream clients, wraps each
// in the provider contract, and assembles the enrichment service.
func initService() (*serviceEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder()

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
		BackoffFactor:  cfg.Retry.BackoffFactor,
	}
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSecs) * time.Second,
	}

	scClient := streamcount.NewClient(cfg.Listeners.Key, streamcount.WithBaseURL(cfg.Listeners.BaseURL))
	listeners := provider.NewListeners(scClient, provider.ListenersConfig{
		Config: provider.Config{
			TTL:          cfg.ListenersTTL(),
			FetchTimeout: time.Duration(cfg.Listeners.TimeoutSecs) * time.Second,
			Confidence:   cfg.Listeners.Confidence,
			Retry:        retryCfg,
			Breaker:      breakerCfg,
		},
		BatchSize:    cfg.Batch.Size,
		PollInterval: time.Duration(cfg.Listeners.PollIntervalSecs) * time.Second,
		PollCap:      time.Duration(cfg.Listeners.PollCapSecs) * time.Second,
	}, rec)

	catClient := catalog.NewClient(cfg.Catalog.Token,
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithRateLimit(cfg.Catalog.RatePerSec),
	)
	catalogue := provider.NewCatalogue(catClient, provider.Config{
		TTL:          cfg.CatalogTTL(),
		FetchTimeout: time.Duration(cfg.Catalog.TimeoutSecs) * time.Second,
		Confidence:   1.0,
		Retry:        retryCfg,
		Breaker:      breakerCfg,
	}, rec)

	kgClient := knowledge.NewClient(
		knowledge.WithEndpoint(cfg.Knowledge.Endpoint),
		knowledge.WithUserAgent(cfg.Knowledge.UserAgent),
	)
	kg := provider.NewKnowledge(kgClient, provider.Config{
		TTL:          cfg.KnowledgeTTL(),
		FetchTimeout: time.Duration(cfg.Knowledge.TimeoutSecs) * time.Second,
		Confidence:   cfg.Knowledge.Confidence,
		Retry:        retryCfg,
		Breaker:      breakerCfg,
	}, rec)

	svc := enrich.NewService(listeners, catalogue, kg, rec, enrich.Config{
		LabelMethod: model.LabelMethod(cfg.Label.Method),
		LabelWindow: cfg.Label.Window,
		BatchSize:   cfg.Batch.Size,
		Concurrency: cfg.Batch.Concurrency,
		Deadline:    time.Duration(cfg.Enrich.DeadlineSecs) * time.Second,
	})

	zap.L().Info("enrichment service ready",
		zap.String("label_method", cfg.Label.Method),
		zap.Int("batch_size", cfg.Batch.Size),
		zap.Int("concurrency", cfg.Batch.Concurrency),
	)

	return &serviceEnv{Service: svc, Metrics: rec}, nil
}
