package model

import "time"

// Release is one catalogue release with its record label. Label may be empty
// when the catalogue has no label information for the release.
type Release struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ReleaseDate time.Time `json:"release_date"`
	Label       string    `json:"label,omitempty"`
}

// CatalogueFacts are the artist-level facts returned by the catalogue API.
type CatalogueFacts struct {
	Genres     []string `json:"genres"`
	Followers  int64    `json:"followers"`
	Popularity int      `json:"popularity"`
}

// LabelMethod selects the principal-label resolution strategy.
type LabelMethod string

const (
	// LabelLatestRelease picks the label of the most recent release.
	LabelLatestRelease LabelMethod = "latest"
	// LabelMostFrequent picks the mode label over a recent-release window.
	LabelMostFrequent LabelMethod = "frequent"
)

// LabelInfo is the derived principal-label fact with its evidence trail.
type LabelInfo struct {
	Principal string      `json:"principal,omitempty"`
	Present   bool        `json:"present"`
	Method    LabelMethod `json:"method"`
	Evidence  []Release   `json:"evidence,omitempty"`
}

// EnrichedArtist is the aggregate enrichment record. It is constructed once
// per enrichment call and owned by the caller after return; every field is
// always populated, absent provider results included.
type EnrichedArtist struct {
	RunID          string                 `json:"run_id"`
	Artist         ArtistIdentity         `json:"artist"`
	ListenerCount  Result[int64]          `json:"listener_count"`
	CatalogueFacts Result[CatalogueFacts] `json:"catalogue_facts"`
	Label          LabelInfo              `json:"label"`
	Management     Result[string]         `json:"management"`
	Notes          []string               `json:"notes,omitempty"`
	EnrichedAt     time.Time              `json:"enriched_at"`
}
