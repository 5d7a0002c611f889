// Package tmdb provides a minimal client for The Movie Database search API,
// used to resolve imported titles to canonical catalog entries.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Candidate is one scored search result from the catalog.
type Candidate struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// Client queries the TMDB search API. One call per lookup, no retries; the
// matcher treats any failure as "no candidates".
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewClient creates a TMDB client authenticated with an API read access
// token, rate limited to stay under TMDB's request ceiling.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     "https://api.themoviedb.org/3",
		token:       token,
		rateLimiter: newRateLimiter(50 * time.Millisecond),
	}
}

// SearchMovies searches the catalog by title, optionally narrowed by year.
// Performs exactly one request.
func (c *Client) SearchMovies(ctx context.Context, title string, year *int) ([]Candidate, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	c.rateLimiter.wait()

	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year != nil {
		params.Set("year", strconv.Itoa(*year))
	}

	searchURL := fmt.Sprintf("%s/search/movie?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var searchResult tmdbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]Candidate, 0, len(searchResult.Results))
	for _, r := range searchResult.Results {
		candidates = append(candidates, Candidate{
			ID:    r.ID,
			Title: r.Title,
			Year:  extractYear(r.ReleaseDate),
		})
	}

	return candidates, nil
}

// extractYear pulls the year from a TMDB release date (YYYY-MM-DD).
func extractYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// TMDB API response types (internal)

type tmdbSearchResponse struct {
	Page         int                `json:"page"`
	Results      []tmdbSearchResult `json:"results"`
	TotalResults int                `json:"total_results"`
}

type tmdbSearchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}
