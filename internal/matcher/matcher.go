// Package matcher resolves parsed import items against the external movie
// catalog, scoring candidates into exact, fuzzy or failed confidence.
package matcher

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/parsers"
	"github.com/mlukasik/filmlog/internal/tmdb"
)

// CatalogSearcher is the single-call catalog boundary. Any failure (network,
// rate limit, empty result) is treated uniformly as "no candidates".
type CatalogSearcher interface {
	SearchMovies(ctx context.Context, title string, year *int) ([]tmdb.Candidate, error)
}

// Match is the outcome of resolving one import item. A failed confidence
// carries no catalog identifier.
type Match struct {
	TmdbID       int
	MatchedTitle string
	Confidence   entities.MatchConfidence
}

const (
	// fuzzyThreshold is the minimum title similarity for a fuzzy match.
	fuzzyThreshold = 0.6
	// yearProximityBonus breaks ties between candidates above the threshold
	// when the release year is within one year of the source row.
	yearProximityBonus = 0.1
)

// Matcher scores catalog candidates for import items.
type Matcher struct {
	catalog CatalogSearcher
}

// New creates a Matcher backed by the given catalog.
func New(catalog CatalogSearcher) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match queries the catalog once for the item's title (narrowed by year when
// present) and picks the best candidate. An exact match requires
// case-insensitive title equality and, when the source row has a year, year
// equality. Otherwise the highest-scoring candidate above the fuzzy
// threshold wins, with ±1 year proximity as a tie-breaker bonus. A transient
// catalog error is a failed match, never retried.
func (m *Matcher) Match(ctx context.Context, item parsers.ImportItem) Match {
	candidates, err := m.catalog.SearchMovies(ctx, item.Title, item.Year)
	if err != nil || len(candidates) == 0 {
		return Match{Confidence: entities.MatchFailed}
	}

	for _, c := range candidates {
		if !titlesEqual(item.Title, c.Title) {
			continue
		}
		if item.Year == nil || (c.Year != 0 && *item.Year == c.Year) {
			return Match{TmdbID: c.ID, MatchedTitle: c.Title, Confidence: entities.MatchExact}
		}
	}

	bestScore := -1.0
	var best tmdb.Candidate
	for _, c := range candidates {
		score := similarity(item.Title, c.Title)
		if score < fuzzyThreshold {
			continue
		}
		if item.Year != nil && c.Year != 0 && absInt(*item.Year-c.Year) <= 1 {
			score += yearProximityBonus
		}
		// Strictly greater keeps the first of equal candidates, so repeated
		// calls over the same snapshot pick the same one.
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if bestScore < 0 {
		return Match{Confidence: entities.MatchFailed}
	}

	return Match{TmdbID: best.ID, MatchedTitle: best.Title, Confidence: entities.MatchFuzzy}
}

func titlesEqual(a, b string) bool {
	return normalizeTitle(a) == normalizeTitle(b)
}

// similarity is the normalized Levenshtein similarity of two titles, 0-1.
func similarity(a, b string) float64 {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// normalizeTitle lowercases and collapses whitespace for comparison.
func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
