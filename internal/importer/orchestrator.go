// Package importer drives the import job state machine: pending →
// processing → completed, with failed reserved for faults that prevent the
// job from continuing at all.
package importer

import (
	"context"
	"fmt"
	"log"

	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/matcher"
	"github.com/mlukasik/filmlog/internal/parsers"
)

// ItemMatcher resolves one parsed item against the external catalog.
type ItemMatcher interface {
	Match(ctx context.Context, item parsers.ImportItem) matcher.Match
}

// ConflictResolver merges one matched item into the user's library.
type ConflictResolver interface {
	Resolve(userID uint, item *entities.ImportJobItem, cfg entities.ImportConfig) (entities.ResultAction, error)
}

// JobStore is the persistence contract for jobs and their items.
type JobStore interface {
	CreateJobWithItems(job *entities.ImportJob, items []entities.ImportJobItem) error
	GetJob(jobID uint) (*entities.ImportJob, error)
	GetPendingItems(jobID uint) ([]entities.ImportJobItem, error)
	MarkProcessing(jobID uint) error
	FinalizeItem(item *entities.ImportJobItem) error
	CompleteJob(jobID uint) error
	FailJob(jobID uint, message string) error
}

// Orchestrator owns the import job lifecycle. One orchestrator instance
// serves all jobs; each job is processed by a single background task, items
// strictly sequential in source order.
type Orchestrator struct {
	jobs     JobStore
	matcher  ItemMatcher
	resolver ConflictResolver
}

// New creates an Orchestrator.
func New(jobs JobStore, m ItemMatcher, r ConflictResolver) *Orchestrator {
	return &Orchestrator{jobs: jobs, matcher: m, resolver: r}
}

// CreateJob is the pipeline entry point: it persists the job header in
// pending state plus one pending item per parsed row, before any item is
// processed. The caller enqueues the background task with the returned job's
// ID and responds immediately.
func (o *Orchestrator) CreateJob(userID uint, items []parsers.ImportItem, cfg entities.ImportConfig) (*entities.ImportJob, error) {
	job := &entities.ImportJob{
		UserID:           userID,
		Source:           cfg.Source,
		ConflictStrategy: cfg.ConflictStrategy,
		ImportRatings:    cfg.ImportRatings,
		ImportWatched:    cfg.ImportWatched,
		ImportWatchlist:  cfg.ImportWatchlist,
		MarkRewatchAsTag: cfg.MarkRewatchAsTag,
	}

	jobItems := make([]entities.ImportJobItem, 0, len(items))
	for _, item := range items {
		jobItems = append(jobItems, entities.ImportJobItem{
			SourceTitle:  item.Title,
			SourceYear:   item.Year,
			SourceRating: item.SourceRating,
			Rating:       item.Rating,
			SourceStatus: item.Status,
			WatchedAt:    item.WatchedAt,
			IsRewatch:    item.IsRewatch,
			Tags:         entities.JoinTags(item.Tags),
		})
	}

	if err := o.jobs.CreateJobWithItems(job, jobItems); err != nil {
		return nil, err
	}
	return job, nil
}

// Run processes a job to completion. Per-item failures are recorded as data
// and never abort the run; only a failure to persist job state flips the job
// to failed. Run is idempotent for terminal jobs and resumes a job that was
// interrupted mid-processing, since only pending items are picked up.
func (o *Orchestrator) Run(ctx context.Context, jobID uint) error {
	job, err := o.jobs.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("load job %d: %w", jobID, err)
	}

	if job.Status.IsTerminal() {
		log.Printf("[IMPORT] Job %d already %s, nothing to do", jobID, job.Status)
		return nil
	}

	if job.Status == entities.ImportJobPending {
		if err := o.jobs.MarkProcessing(jobID); err != nil {
			return o.failJob(jobID, fmt.Errorf("start job: %w", err))
		}
	}

	items, err := o.jobs.GetPendingItems(jobID)
	if err != nil {
		return o.failJob(jobID, fmt.Errorf("load items: %w", err))
	}

	cfg := job.Config()
	for i := range items {
		item := &items[i]
		o.processItem(ctx, job.UserID, item, cfg)

		if err := o.jobs.FinalizeItem(item); err != nil {
			// The job's own persistence is unavailable; this is the one
			// condition that fails the whole job. Outcomes recorded so far
			// keep their state.
			return o.failJob(jobID, fmt.Errorf("persist item %d: %w", item.ID, err))
		}
	}

	if err := o.jobs.CompleteJob(jobID); err != nil {
		return o.failJob(jobID, fmt.Errorf("complete job: %w", err))
	}

	log.Printf("[IMPORT] Job %d completed", jobID)
	return nil
}

// processItem runs Matcher then Resolver for one item and encodes the
// outcome on the item itself. All failures below orchestrator level are
// data, not errors.
func (o *Orchestrator) processItem(ctx context.Context, userID uint, item *entities.ImportJobItem, cfg entities.ImportConfig) {
	match := o.matcher.Match(ctx, parsers.ImportItem{
		Title: item.SourceTitle,
		Year:  item.SourceYear,
	})

	item.MatchConfidence = match.Confidence
	if match.Confidence == entities.MatchFailed {
		item.Status = entities.ImportItemFailed
		item.ErrorMessage = "no catalog match found"
		return
	}

	tmdbID := match.TmdbID
	item.TmdbID = &tmdbID
	item.MatchedTitle = match.MatchedTitle

	action, err := o.resolver.Resolve(userID, item, cfg)
	if err != nil {
		item.Status = entities.ImportItemFailed
		item.ErrorMessage = truncate(err.Error(), 500)
		return
	}

	item.ResultAction = action
	if action == entities.ActionSkippedExisting {
		item.Status = entities.ImportItemSkipped
	} else {
		item.Status = entities.ImportItemSuccess
	}
}

// Abandon marks a job that never reached the queue as failed, so it does
// not sit in pending forever and the retention sweep can reclaim it.
func (o *Orchestrator) Abandon(jobID uint, cause error) {
	_ = o.failJob(jobID, fmt.Errorf("could not schedule processing: %w", cause))
}

// failJob marks the job failed, best effort, and surfaces the fault.
func (o *Orchestrator) failJob(jobID uint, cause error) error {
	if err := o.jobs.FailJob(jobID, truncate(cause.Error(), 1000)); err != nil {
		log.Printf("[IMPORT] Could not mark job %d failed: %v", jobID, err)
	}
	return cause
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
