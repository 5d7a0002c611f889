package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/parsers"
	"github.com/mlukasik/filmlog/internal/tmdb"
)

// fakeCatalog returns a fixed candidate list, or an error, for every search.
type fakeCatalog struct {
	candidates []tmdb.Candidate
	err        error
	calls      int
}

func (f *fakeCatalog) SearchMovies(_ context.Context, _ string, _ *int) ([]tmdb.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

func intPtr(n int) *int { return &n }

func TestMatcher_Match(t *testing.T) {
	t.Run("ExactTitleAndYear", func(t *testing.T) {
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 100, Title: "Heat", Year: 1972},
			{ID: 949, Title: "Heat", Year: 1995},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "heat", Year: intPtr(1995)})
		assert.Equal(t, entities.MatchExact, match.Confidence)
		assert.Equal(t, 949, match.TmdbID)
		assert.Equal(t, "Heat", match.MatchedTitle)
	})

	t.Run("ExactWithoutSourceYear", func(t *testing.T) {
		// No year on the source row means title equality alone is exact
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 348, Title: "Alien", Year: 1979},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "Alien"})
		assert.Equal(t, entities.MatchExact, match.Confidence)
		assert.Equal(t, 348, match.TmdbID)
	})

	t.Run("YearMismatchFallsBackToFuzzy", func(t *testing.T) {
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 603, Title: "The Matrix", Year: 1999},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "The Matrix", Year: intPtr(2003)})
		assert.Equal(t, entities.MatchFuzzy, match.Confidence, "title matches but year does not")
		assert.Equal(t, 603, match.TmdbID)
	})

	t.Run("FuzzyAboveThreshold", func(t *testing.T) {
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 603, Title: "The Matrix", Year: 1999},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "The Matrxi", Year: intPtr(1999)})
		assert.Equal(t, entities.MatchFuzzy, match.Confidence)
		assert.Equal(t, 603, match.TmdbID)
	})

	t.Run("BelowThresholdFails", func(t *testing.T) {
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 1, Title: "Completely Different Film", Year: 1999},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "Heat", Year: intPtr(1995)})
		assert.Equal(t, entities.MatchFailed, match.Confidence)
		assert.Zero(t, match.TmdbID)
	})

	t.Run("YearProximityBreaksTies", func(t *testing.T) {
		// Both remakes score identically on title; the year bonus picks
		// the one released within a year of the source row
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 1, Title: "The Thingy", Year: 1951},
			{ID: 2, Title: "The Thingy", Year: 1982},
		}}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "The Thing", Year: intPtr(1982)})
		assert.Equal(t, entities.MatchFuzzy, match.Confidence)
		assert.Equal(t, 2, match.TmdbID)
	})

	t.Run("EqualScoresPickFirstCandidate", func(t *testing.T) {
		catalog := &fakeCatalog{candidates: []tmdb.Candidate{
			{ID: 10, Title: "The Thingy", Year: 1951},
			{ID: 20, Title: "The Thingy", Year: 1951},
		}}
		m := New(catalog)

		first := m.Match(context.Background(), parsers.ImportItem{Title: "The Thing"})
		require.Equal(t, entities.MatchFuzzy, first.Confidence)
		assert.Equal(t, 10, first.TmdbID)

		// Same snapshot, same pick
		again := m.Match(context.Background(), parsers.ImportItem{Title: "The Thing"})
		assert.Equal(t, first.TmdbID, again.TmdbID)
	})

	t.Run("CatalogErrorIsFailedMatch", func(t *testing.T) {
		catalog := &fakeCatalog{err: errors.New("rate limited")}
		m := New(catalog)

		match := m.Match(context.Background(), parsers.ImportItem{Title: "Heat"})
		assert.Equal(t, entities.MatchFailed, match.Confidence)
		assert.Equal(t, 1, catalog.calls, "a catalog error is not retried")
	})

	t.Run("NoCandidates", func(t *testing.T) {
		m := New(&fakeCatalog{})
		match := m.Match(context.Background(), parsers.ImportItem{Title: "Obscurity"})
		assert.Equal(t, entities.MatchFailed, match.Confidence)
	})
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("Heat", "heat"))
	assert.Equal(t, 1.0, similarity("  The   Matrix ", "the matrix"))
	assert.Equal(t, 0.0, similarity("", ""))
	assert.Greater(t, similarity("The Matrix", "The Matrix Reloaded"), 0.5)
	assert.Less(t, similarity("Heat", "Completely Different Film"), fuzzyThreshold)
}
