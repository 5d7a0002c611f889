// Package resolver merges matched catalog entries into the user's library
// under the configured conflict strategy. It is the only place in the import
// pipeline that writes permanent library state.
package resolver

import (
	"fmt"

	"github.com/mlukasik/filmlog/internal/database/library"
	"github.com/mlukasik/filmlog/internal/entities"
)

// RewatchTag is attached to an entry when the export flags a rewatch and the
// import config asks to keep that as a tag.
const RewatchTag = "rewatch"

// LibraryStore is the write boundary to the user's permanent library. Each
// call is atomic at the row level.
type LibraryStore interface {
	FindByTmdbID(userID uint, tmdbID int) (*entities.LibraryEntry, error)
	Create(userID uint, tmdbID int, fields library.EntryFields) (*entities.LibraryEntry, error)
	Update(userID uint, tmdbID int, fields library.EntryFields) error
}

// Resolver applies the conflict policy for one matched import item.
type Resolver struct {
	store LibraryStore
}

// New creates a Resolver writing through the given library store.
func New(store LibraryStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve decides created / updated / skipped_existing for a matched item
// and performs the corresponding library write.
//
// Policy: with no existing entry every strategy creates. With an existing
// entry, skip never writes, overwrite always updates, and
// keep_higher_rating updates only when the imported normalized rating beats
// the existing one. The config gates decide which fields a create or update
// carries at all; a gated-off field is omitted on create and left untouched
// on update.
func (r *Resolver) Resolve(userID uint, item *entities.ImportJobItem, cfg entities.ImportConfig) (entities.ResultAction, error) {
	if item.TmdbID == nil {
		return "", fmt.Errorf("cannot resolve item without a catalog match")
	}
	tmdbID := *item.TmdbID

	existing, err := r.store.FindByTmdbID(userID, tmdbID)
	if err != nil {
		return "", fmt.Errorf("look up library entry: %w", err)
	}

	fields := r.buildFields(item, cfg)

	if existing == nil {
		if _, err := r.store.Create(userID, tmdbID, fields); err != nil {
			return "", err
		}
		return entities.ActionCreated, nil
	}

	switch cfg.ConflictStrategy {
	case entities.ConflictSkip:
		return entities.ActionSkippedExisting, nil

	case entities.ConflictOverwrite:
		if err := r.store.Update(userID, tmdbID, fields); err != nil {
			return "", err
		}
		return entities.ActionUpdated, nil

	case entities.ConflictKeepHigherRating:
		if ratingValue(item.Rating) <= ratingValue(existing.Rating) {
			return entities.ActionSkippedExisting, nil
		}
		if err := r.store.Update(userID, tmdbID, fields); err != nil {
			return "", err
		}
		return entities.ActionUpdated, nil

	default:
		return "", fmt.Errorf("unknown conflict strategy %q", cfg.ConflictStrategy)
	}
}

// buildFields assembles the fields a write may carry, honoring the config
// gates. Ungated-off status produces a bare catalog reference on create.
func (r *Resolver) buildFields(item *entities.ImportJobItem, cfg entities.ImportConfig) library.EntryFields {
	fields := library.EntryFields{
		Title: item.MatchedTitle,
	}
	if item.SourceYear != nil {
		fields.Year = *item.SourceYear
	}

	switch item.SourceStatus {
	case entities.WatchStatusWatched:
		if cfg.ImportWatched {
			status := entities.WatchStatusWatched
			fields.Status = &status
			fields.WatchedAt = item.WatchedAt
		}
	case entities.WatchStatusWatchlist:
		if cfg.ImportWatchlist {
			status := entities.WatchStatusWatchlist
			fields.Status = &status
		}
	}

	if cfg.ImportRatings && item.Rating != nil {
		fields.Rating = item.Rating
	}

	fields.Tags = item.TagList()
	if item.IsRewatch && cfg.MarkRewatchAsTag {
		fields.Tags = append(fields.Tags, RewatchTag)
	}

	return fields
}

func ratingValue(r *int) int {
	if r == nil {
		return 0
	}
	return *r
}
