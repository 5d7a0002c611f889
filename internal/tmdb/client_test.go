package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient("test-token")
	c.baseURL = serverURL
	c.rateLimiter = newRateLimiter(0)
	return c
}

func TestClient_SearchMovies(t *testing.T) {
	t.Run("ParsesCandidates", func(t *testing.T) {
		var gotQuery, gotYear, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/movie", r.URL.Path)
			gotQuery = r.URL.Query().Get("query")
			gotYear = r.URL.Query().Get("year")
			gotAuth = r.Header.Get("Authorization")

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"page": 1,
				"results": [
					{"id": 949, "title": "Heat", "release_date": "1995-12-15"},
					{"id": 10890, "title": "Heat", "release_date": ""}
				],
				"total_results": 2
			}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		year := 1995
		candidates, err := client.SearchMovies(context.Background(), "Heat", &year)
		require.NoError(t, err)

		assert.Equal(t, "Heat", gotQuery)
		assert.Equal(t, "1995", gotYear)
		assert.Equal(t, "Bearer test-token", gotAuth)

		require.Len(t, candidates, 2)
		assert.Equal(t, 949, candidates[0].ID)
		assert.Equal(t, "Heat", candidates[0].Title)
		assert.Equal(t, 1995, candidates[0].Year)
		assert.Zero(t, candidates[1].Year, "missing release date yields no year")
	})

	t.Run("YearOmittedWhenNil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("year"))
			w.Write([]byte(`{"results": []}`))
		}))
		defer server.Close()

		candidates, err := newTestClient(server.URL).SearchMovies(context.Background(), "Heat", nil)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("EmptyTitleRejected", func(t *testing.T) {
		_, err := newTestClient("http://unused.invalid").SearchMovies(context.Background(), "", nil)
		require.Error(t, err)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).SearchMovies(context.Background(), "Heat", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).SearchMovies(context.Background(), "Heat", nil)
		require.Error(t, err)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(20 * time.Millisecond)

	start := time.Now()
	rl.wait()
	rl.wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond, "second call should wait out the interval")
}

func TestExtractYear(t *testing.T) {
	assert.Equal(t, 1995, extractYear("1995-12-15"))
	assert.Equal(t, 0, extractYear(""))
	assert.Equal(t, 0, extractYear("bad"))
}
