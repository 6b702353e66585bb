// Package knowledge is a client for a Wikidata-style SPARQL endpoint. The
// enrichment core uses it to resolve an artist's management entity by the
// catalogue artist ID the graph stores as an external identifier.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultEndpoint = "https://query.wikidata.org/sparql"

// Client defines the graph endpoint operations.
type Client interface {
	Query(ctx context.Context, sparql string) (*QueryResponse, error)
}

// QueryResponse is the SPARQL 1.1 JSON results envelope.
type QueryResponse struct {
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is a single SPARQL variable binding.
type Binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// APIError is returned when the endpoint responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("knowledge: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithEndpoint overrides the default SPARQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *httpClient) {
		c.endpoint = endpoint
	}
}

// WithUserAgent sets the User-Agent header. Public SPARQL endpoints require
// an identifying agent string.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

// NewClient creates a SPARQL endpoint client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		endpoint:  defaultEndpoint,
		userAgent: "enrich-cli/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, sparql string) (*QueryResponse, error) {
	q := url.Values{}
	q.Set("query", sparql)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "knowledge: create request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "knowledge: execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "knowledge: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "knowledge: unmarshal response")
	}
	return &out, nil
}
