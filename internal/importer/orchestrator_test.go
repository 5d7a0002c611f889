package importer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mlukasik/filmlog/internal/database/importjobs"
	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/matcher"
	"github.com/mlukasik/filmlog/internal/parsers"
)

// fakeMatcher maps lowercased titles to canned matches; unknown titles fail.
type fakeMatcher struct {
	matches map[string]matcher.Match
}

func (f *fakeMatcher) Match(_ context.Context, item parsers.ImportItem) matcher.Match {
	if m, ok := f.matches[item.Title]; ok {
		return m
	}
	return matcher.Match{Confidence: entities.MatchFailed}
}

// fakeResolver returns a fixed action, or an error for titles in failOn.
type fakeResolver struct {
	action entities.ResultAction
	failOn map[string]error
	calls  int
}

func (f *fakeResolver) Resolve(_ uint, item *entities.ImportJobItem, _ entities.ImportConfig) (entities.ResultAction, error) {
	f.calls++
	if err, ok := f.failOn[item.SourceTitle]; ok {
		return "", err
	}
	return f.action, nil
}

func setupTestDB(t *testing.T) (*importjobs.Repository, func()) {
	dbPath := "./test_importer_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.ImportJob{}, &entities.ImportJobItem{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return importjobs.NewRepository(db), cleanup
}

func exactMatch(id int, title string) matcher.Match {
	return matcher.Match{TmdbID: id, MatchedTitle: title, Confidence: entities.MatchExact}
}

func testConfig() entities.ImportConfig {
	return entities.ImportConfig{
		Source:           entities.ImportSourceLetterboxd,
		ConflictStrategy: entities.ConflictSkip,
		ImportRatings:    true,
		ImportWatched:    true,
		ImportWatchlist:  true,
	}
}

func testItems(titles ...string) []parsers.ImportItem {
	items := make([]parsers.ImportItem, 0, len(titles))
	for _, title := range titles {
		items = append(items, parsers.ImportItem{Title: title, Status: entities.WatchStatusWatched})
	}
	return items
}

func TestOrchestrator_CreateJob(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	o := New(repo, &fakeMatcher{}, &fakeResolver{})

	job, err := o.CreateJob(1, testItems("Heat", "Alien"), testConfig())
	require.NoError(t, err)

	assert.Equal(t, entities.ImportJobPending, job.Status)
	assert.Equal(t, 2, job.TotalItems)
	assert.Equal(t, entities.ConflictSkip, job.ConflictStrategy)

	items, err := repo.GetPendingItems(job.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Heat", items[0].SourceTitle)
	assert.Equal(t, "Alien", items[1].SourceTitle)
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("AllOutcomesCounted", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		m := &fakeMatcher{matches: map[string]matcher.Match{
			"Heat":  exactMatch(949, "Heat"),
			"Alien": exactMatch(348, "Alien"),
		}}
		r := &fakeResolver{action: entities.ActionCreated, failOn: map[string]error{
			"Alien": errors.New("disk full"),
		}}
		o := New(repo, m, r)

		job, err := o.CreateJob(1, testItems("Heat", "Alien", "Unknown Film"), testConfig())
		require.NoError(t, err)
		require.NoError(t, o.Run(context.Background(), job.ID))

		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportJobCompleted, got.Status, "per-item failures never fail the job")
		assert.Equal(t, 3, got.ProcessedItems)
		assert.Equal(t, 1, got.SuccessfulItems)
		assert.Equal(t, 2, got.FailedItems)
		assert.Zero(t, got.SkippedItems)

		items, _, err := repo.GetJobItems(job.ID, false, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)

		heat := items[0]
		assert.Equal(t, entities.ImportItemSuccess, heat.Status)
		assert.Equal(t, entities.ActionCreated, heat.ResultAction)
		assert.Equal(t, entities.MatchExact, heat.MatchConfidence)
		require.NotNil(t, heat.TmdbID)
		assert.Equal(t, 949, *heat.TmdbID)

		alien := items[1]
		assert.Equal(t, entities.ImportItemFailed, alien.Status)
		assert.Equal(t, "disk full", alien.ErrorMessage)

		unknown := items[2]
		assert.Equal(t, entities.ImportItemFailed, unknown.Status)
		assert.Equal(t, entities.MatchFailed, unknown.MatchConfidence)
		assert.Equal(t, "no catalog match found", unknown.ErrorMessage)
		assert.Nil(t, unknown.TmdbID)
	})

	t.Run("SkippedExisting", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		m := &fakeMatcher{matches: map[string]matcher.Match{"Heat": exactMatch(949, "Heat")}}
		o := New(repo, m, &fakeResolver{action: entities.ActionSkippedExisting})

		job, err := o.CreateJob(1, testItems("Heat"), testConfig())
		require.NoError(t, err)
		require.NoError(t, o.Run(context.Background(), job.ID))

		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.SkippedItems)
		assert.Zero(t, got.FailedItems)
	})

	t.Run("TerminalJobIsNoop", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		m := &fakeMatcher{matches: map[string]matcher.Match{"Heat": exactMatch(949, "Heat")}}
		r := &fakeResolver{action: entities.ActionCreated}
		o := New(repo, m, r)

		job, err := o.CreateJob(1, testItems("Heat"), testConfig())
		require.NoError(t, err)
		require.NoError(t, o.Run(context.Background(), job.ID))
		firstCalls := r.calls

		// A redelivered task must not touch the finished job
		require.NoError(t, o.Run(context.Background(), job.ID))
		assert.Equal(t, firstCalls, r.calls)

		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ProcessedItems, "counters unchanged on rerun")
	})

	t.Run("ResumesProcessingJob", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		m := &fakeMatcher{matches: map[string]matcher.Match{
			"Heat":  exactMatch(949, "Heat"),
			"Alien": exactMatch(348, "Alien"),
		}}
		r := &fakeResolver{action: entities.ActionCreated}
		o := New(repo, m, r)

		job, err := o.CreateJob(1, testItems("Heat", "Alien"), testConfig())
		require.NoError(t, err)

		// Simulate an interrupted run: job marked processing, first item done
		require.NoError(t, repo.MarkProcessing(job.ID))
		items, err := repo.GetPendingItems(job.ID)
		require.NoError(t, err)
		items[0].Status = entities.ImportItemSuccess
		require.NoError(t, repo.FinalizeItem(&items[0]))

		require.NoError(t, o.Run(context.Background(), job.ID))

		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportJobCompleted, got.Status)
		assert.Equal(t, 2, got.ProcessedItems)
		assert.Equal(t, 1, r.calls, "only the remaining pending item was processed")
	})

	t.Run("MissingJobFails", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		o := New(repo, &fakeMatcher{}, &fakeResolver{})
		assert.Error(t, o.Run(context.Background(), 9999))
	})
}
