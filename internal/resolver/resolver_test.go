package resolver

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlukasik/filmlog/internal/database/library"
	"github.com/mlukasik/filmlog/internal/entities"
)

// fakeStore records resolver writes against an in-memory entry map keyed by
// TMDB ID.
type fakeStore struct {
	entries    map[int]*entities.LibraryEntry
	creates    int
	updates    int
	lastFields library.EntryFields
	findErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[int]*entities.LibraryEntry)}
}

func (f *fakeStore) FindByTmdbID(_ uint, tmdbID int) (*entities.LibraryEntry, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.entries[tmdbID], nil
}

func (f *fakeStore) Create(userID uint, tmdbID int, fields library.EntryFields) (*entities.LibraryEntry, error) {
	f.creates++
	f.lastFields = fields
	entry := &entities.LibraryEntry{UserID: userID, TmdbID: tmdbID, Title: fields.Title, Rating: fields.Rating}
	if fields.Status != nil {
		entry.Status = *fields.Status
	}
	f.entries[tmdbID] = entry
	return entry, nil
}

func (f *fakeStore) Update(_ uint, tmdbID int, fields library.EntryFields) error {
	f.updates++
	f.lastFields = fields
	return nil
}

func intPtr(n int) *int { return &n }

func matchedItem(tmdbID int) *entities.ImportJobItem {
	return &entities.ImportJobItem{
		SourceTitle:  "Heat",
		SourceYear:   intPtr(1995),
		SourceStatus: entities.WatchStatusWatched,
		TmdbID:       &tmdbID,
		MatchedTitle: "Heat",
	}
}

func allGates(strategy entities.ConflictStrategy) entities.ImportConfig {
	return entities.ImportConfig{
		ConflictStrategy: strategy,
		ImportRatings:    true,
		ImportWatched:    true,
		ImportWatchlist:  true,
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("NoExistingEntryCreates", func(t *testing.T) {
		for _, strategy := range []entities.ConflictStrategy{
			entities.ConflictSkip, entities.ConflictOverwrite, entities.ConflictKeepHigherRating,
		} {
			t.Run(string(strategy), func(t *testing.T) {
				store := newFakeStore()
				action, err := New(store).Resolve(1, matchedItem(949), allGates(strategy))
				require.NoError(t, err)
				assert.Equal(t, entities.ActionCreated, action)
				assert.Equal(t, 1, store.creates)
				assert.Zero(t, store.updates)
			})
		}
	})

	t.Run("SkipNeverWritesExisting", func(t *testing.T) {
		store := newFakeStore()
		store.entries[949] = &entities.LibraryEntry{TmdbID: 949, Rating: intPtr(2)}

		item := matchedItem(949)
		item.Rating = intPtr(5)
		action, err := New(store).Resolve(1, item, allGates(entities.ConflictSkip))
		require.NoError(t, err)
		assert.Equal(t, entities.ActionSkippedExisting, action)
		assert.Zero(t, store.updates)
	})

	t.Run("OverwriteAlwaysUpdates", func(t *testing.T) {
		store := newFakeStore()
		store.entries[949] = &entities.LibraryEntry{TmdbID: 949, Rating: intPtr(5)}

		item := matchedItem(949)
		item.Rating = intPtr(2)
		action, err := New(store).Resolve(1, item, allGates(entities.ConflictOverwrite))
		require.NoError(t, err)
		assert.Equal(t, entities.ActionUpdated, action)
		assert.Equal(t, 1, store.updates)
	})

	t.Run("KeepHigherRating", func(t *testing.T) {
		cases := []struct {
			name     string
			existing *int
			imported *int
			action   entities.ResultAction
		}{
			{"ImportedHigher", intPtr(3), intPtr(4), entities.ActionUpdated},
			{"ImportedEqual", intPtr(3), intPtr(3), entities.ActionSkippedExisting},
			{"ImportedLower", intPtr(4), intPtr(2), entities.ActionSkippedExisting},
			{"ExistingUnrated", nil, intPtr(1), entities.ActionUpdated},
			{"ImportedUnrated", intPtr(1), nil, entities.ActionSkippedExisting},
			{"BothUnrated", nil, nil, entities.ActionSkippedExisting},
		}

		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				store := newFakeStore()
				store.entries[949] = &entities.LibraryEntry{TmdbID: 949, Rating: c.existing}

				item := matchedItem(949)
				item.Rating = c.imported
				action, err := New(store).Resolve(1, item, allGates(entities.ConflictKeepHigherRating))
				require.NoError(t, err)
				assert.Equal(t, c.action, action)
			})
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		// Re-running the same item under skip changes nothing after the
		// first create
		store := newFakeStore()
		r := New(store)

		first, err := r.Resolve(1, matchedItem(949), allGates(entities.ConflictSkip))
		require.NoError(t, err)
		assert.Equal(t, entities.ActionCreated, first)

		second, err := r.Resolve(1, matchedItem(949), allGates(entities.ConflictSkip))
		require.NoError(t, err)
		assert.Equal(t, entities.ActionSkippedExisting, second)
		assert.Equal(t, 1, store.creates)
		assert.Zero(t, store.updates)
	})

	t.Run("UnmatchedItemRejected", func(t *testing.T) {
		item := matchedItem(949)
		item.TmdbID = nil
		_, err := New(newFakeStore()).Resolve(1, item, allGates(entities.ConflictSkip))
		require.Error(t, err)
	})

	t.Run("UnknownStrategyRejected", func(t *testing.T) {
		store := newFakeStore()
		store.entries[949] = &entities.LibraryEntry{TmdbID: 949}
		_, err := New(store).Resolve(1, matchedItem(949), allGates("merge"))
		require.Error(t, err)
	})

	t.Run("StoreErrorPropagates", func(t *testing.T) {
		store := newFakeStore()
		store.findErr = errors.New("disk full")
		_, err := New(store).Resolve(1, matchedItem(949), allGates(entities.ConflictSkip))
		require.Error(t, err)
	})
}

func TestResolver_FieldGates(t *testing.T) {
	t.Run("WatchedGateOff", func(t *testing.T) {
		store := newFakeStore()
		cfg := allGates(entities.ConflictSkip)
		cfg.ImportWatched = false

		now := time.Now()
		item := matchedItem(949)
		item.WatchedAt = &now

		_, err := New(store).Resolve(1, item, cfg)
		require.NoError(t, err)
		assert.Nil(t, store.lastFields.Status, "gated-off status must not be applied")
		assert.Nil(t, store.lastFields.WatchedAt)
	})

	t.Run("RatingsGateOff", func(t *testing.T) {
		store := newFakeStore()
		cfg := allGates(entities.ConflictSkip)
		cfg.ImportRatings = false

		item := matchedItem(949)
		item.Rating = intPtr(5)

		_, err := New(store).Resolve(1, item, cfg)
		require.NoError(t, err)
		assert.Nil(t, store.lastFields.Rating)
	})

	t.Run("WatchlistGateOff", func(t *testing.T) {
		store := newFakeStore()
		cfg := allGates(entities.ConflictSkip)
		cfg.ImportWatchlist = false

		item := matchedItem(949)
		item.SourceStatus = entities.WatchStatusWatchlist

		_, err := New(store).Resolve(1, item, cfg)
		require.NoError(t, err)
		assert.Nil(t, store.lastFields.Status)
	})

	t.Run("RewatchTag", func(t *testing.T) {
		store := newFakeStore()
		cfg := allGates(entities.ConflictSkip)
		cfg.MarkRewatchAsTag = true

		item := matchedItem(949)
		item.IsRewatch = true
		item.Tags = "crime"

		_, err := New(store).Resolve(1, item, cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"crime", RewatchTag}, store.lastFields.Tags)
	})

	t.Run("RewatchWithoutGateKeepsTagsClean", func(t *testing.T) {
		store := newFakeStore()

		item := matchedItem(949)
		item.IsRewatch = true

		_, err := New(store).Resolve(1, item, allGates(entities.ConflictSkip))
		require.NoError(t, err)
		assert.NotContains(t, fmt.Sprint(store.lastFields.Tags), RewatchTag)
	})
}
