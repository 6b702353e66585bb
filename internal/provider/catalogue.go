package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
	"github.com/crescendo-data/enrich-cli/pkg/catalog"
)

// CatalogueName identifies the catalogue provider.
const CatalogueName = "catalogue"

// Catalogue resolves artist facts and release lists from the catalogue API.
// Both fetch kinds share one breaker (one upstream, one failure domain) but
// cache under separate keyspaces: release lists feed only the label
// resolver and must not collide with the facts cache.
type Catalogue struct {
	facts    *Provider[model.CatalogueFacts]
	releases *Provider[[]model.Release]
	client   catalog.Client
}

// NewCatalogue builds the catalogue provider.
func NewCatalogue(client catalog.Client, cfg Config, rec *metrics.Recorder) *Catalogue {
	if cfg.Name == "" {
		cfg.Name = CatalogueName
	}

	c := &Catalogue{client: client}
	c.facts = New(cfg, rec, c.fetchFacts)

	relCfg := cfg
	relCfg.SharedBreaker = c.facts.breaker
	c.releases = New(relCfg, rec, c.fetchReleases)

	return c
}

// Name returns the provider identifier.
func (c *Catalogue) Name() string { return c.facts.Name() }

// CircuitState returns the provider's breaker state.
func (c *Catalogue) CircuitState() resilience.State { return c.facts.CircuitState() }

// Facts resolves the artist-level facts through the shared contract.
func (c *Catalogue) Facts(ctx context.Context, id string, forceRefresh bool) model.Result[model.CatalogueFacts] {
	return c.facts.Get(ctx, id, forceRefresh)
}

// Releases resolves the artist's release list through the shared contract.
func (c *Catalogue) Releases(ctx context.Context, id string, forceRefresh bool) model.Result[[]model.Release] {
	return c.releases.Get(ctx, id, forceRefresh)
}

func (c *Catalogue) fetchFacts(ctx context.Context, id string) (model.CatalogueFacts, []model.Evidence, error) {
	artist, err := c.client.GetArtist(ctx, id)
	if err != nil {
		return model.CatalogueFacts{}, nil, classifyCatalogErr(err, "artist "+id)
	}

	facts := model.CatalogueFacts{
		Genres:     artist.Genres,
		Followers:  artist.Followers,
		Popularity: artist.Popularity,
	}
	ev := []model.Evidence{{
		Source: CatalogueName,
		Ref:    "artists/" + id,
		Note:   "catalogue artist record " + artist.Name,
	}}
	return facts, ev, nil
}

func (c *Catalogue) fetchReleases(ctx context.Context, id string) ([]model.Release, []model.Evidence, error) {
	albums, err := c.client.ListAlbums(ctx, id)
	if err != nil {
		return nil, nil, classifyCatalogErr(err, "albums for artist "+id)
	}

	releases := make([]model.Release, 0, len(albums))
	for _, a := range albums {
		releases = append(releases, model.Release{
			ID:          a.ID,
			Name:        a.Name,
			ReleaseDate: parseReleaseDate(a.ReleaseDate),
			Label:       a.Label,
		})
	}
	ev := []model.Evidence{{
		Source: CatalogueName,
		Ref:    "artists/" + id + "/albums",
		Note:   fmt.Sprintf("%d releases", len(releases)),
	}}
	return releases, ev, nil
}

// parseReleaseDate accepts the catalogue's day, month, and year precisions.
// Unparseable dates become the zero time, which sorts oldest.
func parseReleaseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func classifyCatalogErr(err error, subject string) error {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		if resilience.IsTransientStatus(apiErr.StatusCode) {
			return resilience.NewTransient(err, apiErr.StatusCode)
		}
		if apiErr.StatusCode == 404 {
			return resilience.NewNotFound(subject)
		}
	}
	return err
}
