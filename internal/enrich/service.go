// Package enrich orchestrates the provider fan-out for one artist or a
// batch and merges the heterogeneous provider outputs into one aggregate
// record with a provenance trail.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crescendo-data/enrich-cli/internal/label"
	"github.com/crescendo-data/enrich-cli/internal/metrics"
	"github.com/crescendo-data/enrich-cli/internal/model"
	"github.com/crescendo-data/enrich-cli/internal/provider"
	"github.com/crescendo-data/enrich-cli/internal/resilience"
)

// Config tunes the enrichment service.
type Config struct {
	// LabelMethod selects the principal-label strategy. Default: latest.
	LabelMethod model.LabelMethod

	// LabelWindow is the recent-release window for the most-frequent
	// method. Default: 20.
	LabelWindow int

	// BatchSize caps artists per upstream listener-count job. Default: 50.
	BatchSize int

	// Concurrency bounds in-flight artist enrichments during batch runs.
	// Default: 5.
	Concurrency int

	// Deadline optionally bounds one whole enrichment call; providers
	// still pending at the deadline resolve to absent. Zero disables it.
	Deadline time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.LabelMethod == "" {
		cfg.LabelMethod = model.LabelLatestRelease
	}
	if cfg.LabelWindow <= 0 {
		cfg.LabelWindow = label.DefaultWindow
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return cfg
}

// Service fans out to the three providers and assembles enrichment records.
// Provider state (cache, breaker) is owned by the providers themselves; the
// service holds them by reference and never shares state between them.
type Service struct {
	listeners *provider.Listeners
	catalogue *provider.Catalogue
	knowledge *provider.Knowledge
	rec       *metrics.Recorder
	cfg       Config
}

// NewService wires the providers into an enrichment service.
func NewService(listeners *provider.Listeners, catalogue *provider.Catalogue, knowledge *provider.Knowledge, rec *metrics.Recorder, cfg Config) *Service {
	return &Service{
		listeners: listeners,
		catalogue: catalogue,
		knowledge: knowledge,
		rec:       rec,
		cfg:       cfg.withDefaults(),
	}
}

// Enrich resolves one artist. The identifier may be a bare catalogue ID or
// a catalogue artist URL; a malformed identifier is the only hard error —
// provider failures degrade to absent fields, never to an error.
func (s *Service) Enrich(ctx context.Context, identifier string, forceRefresh bool) (*model.EnrichedArtist, error) {
	artist, err := model.ParseArtistIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	return s.enrichOne(ctx, artist, forceRefresh, nil), nil
}

// EnrichBatch resolves many artists. Listener counts are prefetched in
// upstream jobs of at most BatchSize artists; the per-artist catalogue,
// knowledge, and label work then runs with at most Concurrency enrichments
// in flight. The returned slice is index-aligned with the input: a
// malformed identifier yields a record with a note, never a shifted slot.
func (s *Service) EnrichBatch(ctx context.Context, identifiers []string, forceRefresh bool) []*model.EnrichedArtist {
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	artists := make([]model.ArtistIdentity, len(identifiers))
	parseErrs := make([]error, len(identifiers))
	var ids []string
	for i, raw := range identifiers {
		artists[i], parseErrs[i] = model.ParseArtistIdentifier(raw)
		if parseErrs[i] == nil {
			ids = append(ids, artists[i].ID)
		}
	}

	listenerResults := s.listeners.GetBatch(ctx, ids, forceRefresh)

	out := make([]*model.EnrichedArtist, len(identifiers))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for i := range identifiers {
		i := i
		g.Go(func() error {
			if parseErrs[i] != nil {
				out[i] = &model.EnrichedArtist{
					RunID:          uuid.NewString(),
					EnrichedAt:     time.Now().UTC(),
					ListenerCount:  model.Absent[int64]("", ""),
					CatalogueFacts: model.Absent[model.CatalogueFacts]("", ""),
					Management:     model.Absent[string]("", ""),
					Label:          model.LabelInfo{Method: s.cfg.LabelMethod},
					Notes:          []string{"invalid identifier: " + parseErrs[i].Error()},
				}
				return nil
			}
			prefetched := listenerResults[artists[i].ID]
			out[i] = s.enrichOne(ctx, artists[i], forceRefresh, &prefetched)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// enrichOne runs the concurrent provider fan-out for a single artist. Each
// provider call is failure-isolated: results are joined only after all
// three finish, and the record's shape never depends on completion order.
func (s *Service) enrichOne(ctx context.Context, artist model.ArtistIdentity, forceRefresh bool, prefetchedListeners *model.Result[int64]) *model.EnrichedArtist {
	start := time.Now()

	var (
		listenerRes model.Result[int64]
		factsRes    model.Result[model.CatalogueFacts]
		releaseRes  model.Result[[]model.Release]
		mgmtRes     model.Result[string]
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if prefetchedListeners != nil {
			listenerRes = *prefetchedListeners
			return
		}
		listenerRes = s.listeners.Get(ctx, artist.ID, forceRefresh)
	}()
	go func() {
		defer wg.Done()
		factsRes = s.catalogue.Facts(ctx, artist.ID, forceRefresh)
		releaseRes = s.catalogue.Releases(ctx, artist.ID, forceRefresh)
	}()
	go func() {
		defer wg.Done()
		mgmtRes = s.knowledge.Get(ctx, artist.ID, forceRefresh)
	}()
	wg.Wait()

	labelInfo := label.Resolve(releaseRes.Value, s.cfg.LabelMethod, s.cfg.LabelWindow)

	rec := &model.EnrichedArtist{
		RunID:          uuid.NewString(),
		Artist:         artist,
		ListenerCount:  listenerRes,
		CatalogueFacts: factsRes,
		Label:          labelInfo,
		Management:     mgmtRes,
		EnrichedAt:     time.Now().UTC(),
	}
	rec.Notes = buildNotes(rec)

	zap.L().Debug("artist enriched",
		zap.String("artist", artist.ID),
		zap.String("run_id", rec.RunID),
		zap.Bool("listeners", listenerRes.Present),
		zap.Bool("facts", factsRes.Present),
		zap.Bool("management", mgmtRes.Present),
		zap.Bool("label", labelInfo.Present),
		zap.Duration("took", time.Since(start)),
	)

	return rec
}

// buildNotes appends a human-readable note per absent field, with the
// provider's own reason when it left one.
func buildNotes(rec *model.EnrichedArtist) []string {
	var notes []string
	add := func(msg, reason string) {
		if reason != "" {
			msg += ": " + reason
		}
		notes = append(notes, msg)
	}

	if !rec.ListenerCount.Present {
		add("no listener count found", rec.ListenerCount.AbsentNote())
	}
	if !rec.CatalogueFacts.Present {
		add("no catalogue facts found", rec.CatalogueFacts.AbsentNote())
	}
	if !rec.Management.Present {
		add("no management info found", rec.Management.AbsentNote())
	}
	if !rec.Label.Present {
		notes = append(notes, "no principal label derived")
	}
	return notes
}

// Metrics returns the per-provider snapshot with current circuit states.
func (s *Service) Metrics() map[string]metrics.ProviderStats {
	snap := s.rec.Snapshot()
	states := map[string]resilience.State{
		s.listeners.Name(): s.listeners.CircuitState(),
		s.catalogue.Name(): s.catalogue.CircuitState(),
		s.knowledge.Name(): s.knowledge.CircuitState(),
	}
	for name, st := range states {
		ps := snap[name]
		ps.CircuitState = st.String()
		snap[name] = ps
	}
	return snap
}
