// Package model defines the enrichment domain types shared across providers,
// the label resolver, and the enrichment service.
package model

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ArtistIdentity holds the canonical identifiers for one artist.
type ArtistIdentity struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// catalogueIDPattern matches a canonical base62 catalogue artist ID.
var catalogueIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{16,32}$`)

// ParseArtistIdentifier normalizes a raw identifier into an ArtistIdentity.
// It accepts either a bare catalogue artist ID or a canonical catalogue
// artist URL (".../artist/<id>"). A malformed identifier is a caller error.
func ParseArtistIdentifier(raw string) (ArtistIdentity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ArtistIdentity{}, eris.New("model: empty artist identifier")
	}

	if catalogueIDPattern.MatchString(raw) {
		return ArtistIdentity{ID: raw, URL: CanonicalArtistURL(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ArtistIdentity{}, eris.Errorf("model: malformed artist identifier: %q", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "artist" || i+1 >= len(segments) {
			continue
		}
		id := segments[i+1]
		if !catalogueIDPattern.MatchString(id) {
			return ArtistIdentity{}, eris.Errorf("model: invalid artist id in url: %q", id)
		}
		return ArtistIdentity{ID: id, URL: CanonicalArtistURL(id)}, nil
	}

	return ArtistIdentity{}, eris.Errorf("model: no artist id found in %q", raw)
}

// DefaultCatalogueHost is the public catalogue site; listener-count scraping
// jobs are keyed by artist page URLs on this host.
const DefaultCatalogueHost = "https://listen.tunegraph.io"

// CanonicalArtistURL builds the canonical catalogue page URL for an artist ID.
func CanonicalArtistURL(id string) string {
	return DefaultCatalogueHost + "/artist/" + id
}
