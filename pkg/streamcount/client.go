// Package streamcount is a client for the listener-count scraping service.
// The service works in jobs: submit a batch of artist page URLs, then poll
// until the scrape completes.
package streamcount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the scraping service API.
const defaultBaseURL = "https://api.streamcount.app/v1"

// Client defines the scraping service operations.
type Client interface {
	SubmitJob(ctx context.Context, req JobRequest) (*JobResponse, error)
	GetJobStatus(ctx context.Context, id string) (*JobStatusResponse, error)
}

// JobRequest is the body for POST /jobs.
type JobRequest struct {
	URLs []string `json:"urls"`
}

// JobResponse is the response from POST /jobs.
type JobResponse struct {
	ID string `json:"id"`
}

// JobStatusResponse is the response from GET /jobs/{id}.
type JobStatusResponse struct {
	Status  string       `json:"status"` // queued | running | completed | failed
	Results []URLListens `json:"results,omitempty"`
}

// URLListens is one scraped listener estimate. URLs the scraper could not
// read are omitted from the results rather than reported as zero.
type URLListens struct {
	URL       string `json:"url"`
	Listeners int64  `json:"listeners"`
}

// APIError is returned when the service responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("streamcount: HTTP %d: %s", e.StatusCode, e.Body)
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a scraping service client. Scrapes are slow; the default
// HTTP timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
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

func (c *httpClient) SubmitJob(ctx context.Context, req JobRequest) (*JobResponse, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "streamcount: marshal job request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "streamcount: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp JobResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) GetJobStatus(ctx context.Context, id string) (*JobStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+id, nil)
	if err != nil {
		return nil, eris.Wrap(err, "streamcount: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp JobStatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "streamcount: execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "streamcount: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "streamcount: unmarshal response")
	}
	return nil
}
