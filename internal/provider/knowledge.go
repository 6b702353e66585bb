package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
	"github.com/crescendo-data/enrich-cli/pkg/knowledge"
)

// KnowledgeName identifies the knowledge-graph provider.
const KnowledgeName = "knowledge"

// managementQuery matches an artist entity by its catalogue artist ID and
// optionally follows the management relation. Graph coverage is partial; a
// miss is an expected outcome, not an error.
const managementQuery = `SELECT ?manager ?managerLabel WHERE {
  ?artist wdt:P1902 %q .
  ?artist wdt:P1037 ?manager .
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
} LIMIT 1`

// Knowledge resolves an artist's management entity from the knowledge
// graph. Absent-with-confidence-0 is the steady state for uncovered
// artists, so not-found outcomes are cached for the full TTL.
type Knowledge struct {
	p      *Provider[string]
	client knowledge.Client
}

// NewKnowledge builds the knowledge-graph provider.
func NewKnowledge(client knowledge.Client, cfg Config, rec *metrics.Recorder) *Knowledge {
	if cfg.Name == "" {
		cfg.Name = KnowledgeName
	}
	cfg.CacheAbsent = true

	k := &Knowledge{client: client}
	k.p = New(cfg, rec, k.fetchManagement)
	return k
}

// Name returns the provider identifier.
func (k *Knowledge) Name() string { return k.p.Name() }

// CircuitState returns the provider's breaker state.
func (k *Knowledge) CircuitState() resilience.State { return k.p.CircuitState() }

// Get resolves the management entity for one artist through the shared
// contract.
func (k *Knowledge) Get(ctx context.Context, id string, forceRefresh bool) model.Result[string] {
	return k.p.Get(ctx, id, forceRefresh)
}

func (k *Knowledge) fetchManagement(ctx context.Context, id string) (string, []model.Evidence, error) {
	resp, err := k.client.Query(ctx, fmt.Sprintf(managementQuery, id))
	if err != nil {
		return "", nil, classifyKnowledgeErr(err)
	}

	if len(resp.Results.Bindings) == 0 {
		return "", nil, resilience.NewNotFound("management entity for artist " + id)
	}

	binding := resp.Results.Bindings[0]
	name := binding["managerLabel"].Value
	if name == "" {
		return "", nil, resilience.NewNotFound("management entity for artist " + id)
	}

	ev := []model.Evidence{{
		Source: KnowledgeName,
		Ref:    binding["manager"].Value,
		Note:   "matched by catalogue artist id",
	}}
	return name, ev, nil
}

func classifyKnowledgeErr(err error) error {
	var apiErr *knowledge.APIError
	if errors.As(err, &apiErr) {
		if resilience.IsTransientStatus(apiErr.StatusCode) {
			return resilience.NewTransient(err, apiErr.StatusCode)
		}
	}
	return err
}
