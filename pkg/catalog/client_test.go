package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestGetArtist(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/artists/abc123abc123abc1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Artist{
			ID:         "abc123abc123abc1",
			Name:       "Test Artist",
			Genres:     []string{"indie", "rock"},
			Followers:  123456,
			Popularity: 64,
		})
	})

	artist, err := c.GetArtist(context.Background(), "abc123abc123abc1")
	require.NoError(t, err)
	assert.Equal(t, "Test Artist", artist.Name)
	assert.Equal(t, int64(123456), artist.Followers)
	assert.Equal(t, []string{"indie", "rock"}, artist.Genres)
}

func TestGetArtist_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"artist not found"}`))
	})

	_, err := c.GetArtist(context.Background(), "abc123abc123abc1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestListAlbums_Pagination(t *testing.T) {
	// 120 albums across three pages of 50.
	total := 120
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/artists/abc123abc123abc1/albums", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		require.NoError(t, err)

		page := albumPage{Total: total}
		for i := offset; i < total && i < offset+albumPageSize; i++ {
			page.Items = append(page.Items, Album{
				ID:          fmt.Sprintf("al%d", i),
				Name:        fmt.Sprintf("Album %d", i),
				ReleaseDate: "2023-01-01",
				Label:       "X",
			})
		}
		if offset+len(page.Items) < total {
			page.Next = fmt.Sprintf("/artists/abc123abc123abc1/albums?limit=50&offset=%d", offset+len(page.Items))
		}
		json.NewEncoder(w).Encode(page)
	})

	albums, err := c.ListAlbums(context.Background(), "abc123abc123abc1")
	require.NoError(t, err)
	require.Len(t, albums, total)
	assert.Equal(t, "al0", albums[0].ID)
	assert.Equal(t, "al119", albums[total-1].ID)
}

func TestListAlbums_SinglePage(t *testing.T) {
	var requests int
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(albumPage{
			Items: []Album{{ID: "al1", Name: "Only Album", ReleaseDate: "2024", Label: "Y"}},
			Total: 1,
		})
	})

	albums, err := c.ListAlbums(context.Background(), "abc123abc123abc1")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, 1, requests)
}

func TestListAlbums_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	})

	_, err := c.ListAlbums(context.Background(), "abc123abc123abc1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
}
