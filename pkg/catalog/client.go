// Package catalog is a client for the music catalogue API: artist facts and
// release listings with per-release label.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.tunegraph.io/v1"
	albumPageSize  = 50
)

// Client defines the catalogue API operations.
type Client interface {
	GetArtist(ctx context.Context, id string) (*Artist, error)
	ListAlbums(ctx context.Context, id string) ([]Album, error)
}

// Artist is the artist object from GET /artists/{id}.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Followers  int64    `json:"followers"`
	Popularity int      `json:"popularity"`
}

// Album is one entry from GET /artists/{id}/albums.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"` // 2006-01-02, 2006-01, or 2006
	Label       string `json:"label"`
}

// albumPage is the paginated album listing envelope.
type albumPage struct {
	Items []Album `json:"items"`
	Total int     `json:"total"`
	Next  string  `json:"next"` // empty on the last page
}

// APIError is returned when the catalogue responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second to stay inside the API
// quota. Zero disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a catalogue API client authenticated by bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var artist Artist
	if err := c.get(ctx, "/artists/"+url.PathEscape(id), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// ListAlbums walks the paginated album listing and returns every release.
func (c *httpClient) ListAlbums(ctx context.Context, id string) ([]Album, error) {
	var albums []Album
	offset := 0
	for {
		path := fmt.Sprintf("/artists/%s/albums?limit=%d&offset=%d", url.PathEscape(id), albumPageSize, offset)
		var page albumPage
		if err := c.get(ctx, path, &page); err != nil {
			return nil, err
		}
		albums = append(albums, page.Items...)
		if page.Next == "" || len(page.Items) == 0 {
			return albums, nil
		}
		offset += len(page.Items)
	}
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "catalog: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "catalog: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "catalog: execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "catalog: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "catalog: unmarshal response")
	}
	return nil
}
