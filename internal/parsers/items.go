package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/mlukasik/filmlog/internal/entities"
)

// ImportItem is the canonical record of one watched/rated/watchlisted title
// produced by a parser, before catalog resolution. It is ephemeral: the
// orchestrator copies it into a persisted ImportJobItem and never reads it
// again.
type ImportItem struct {
	Title        string
	Year         *int
	SourceRating *float64 // on the export's native scale
	Rating       *int     // normalized to 1-5
	Status       entities.WatchStatus
	WatchedAt    *time.Time
	IsRewatch    bool
	Tags         []string
}

// Key returns the normalized dedup key for merging sections of one export.
func (i ImportItem) Key() string {
	year := 0
	if i.Year != nil {
		year = *i.Year
	}
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(i.Title)), year)
}

// accumulator merges rows from multiple sections of one export by normalized
// (title, year) key while preserving first-seen order. A later section
// enriches an already-seen item instead of creating a duplicate.
type accumulator struct {
	items []ImportItem
	index map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

// add merges item into the accumulator. Watched status always wins over
// watchlist, a later section's rating or watched date replaces an earlier
// one, rewatch flags are sticky, and tags are unioned.
func (a *accumulator) add(item ImportItem) {
	key := item.Key()

	idx, seen := a.index[key]
	if !seen {
		a.index[key] = len(a.items)
		a.items = append(a.items, item)
		return
	}

	existing := &a.items[idx]

	if item.Status == entities.WatchStatusWatched {
		existing.Status = entities.WatchStatusWatched
	}
	if item.SourceRating != nil {
		existing.SourceRating = item.SourceRating
		existing.Rating = item.Rating
	}
	if item.WatchedAt != nil {
		existing.WatchedAt = item.WatchedAt
	}
	if item.IsRewatch {
		existing.IsRewatch = true
	}
	existing.Tags = unionTags(existing.Tags, item.Tags)
}

func unionTags(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range b {
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		a = append(a, t)
	}
	return a
}
