package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// FinishedJobCleaner deletes terminal import jobs older than a cutoff.
type FinishedJobCleaner interface {
	DeleteFinishedBefore(cutoff time.Time) (int64, error)
}

// AuditEventCleaner deletes audit events older than a cutoff.
type AuditEventCleaner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CleanupImportJobsTask removes finished import jobs (and their items) past
// the retention window, together with stale audit events.
type CleanupImportJobsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupImportJobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_jobs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupImportJobsProcessor creates a processor function for
// CleanupImportJobsTask.
func CleanupImportJobsProcessor(jobs FinishedJobCleaner, audit AuditEventCleaner) backlite.QueueProcessor[CleanupImportJobsTask] {
	return func(ctx context.Context, task CleanupImportJobsTask) error {
		if jobs == nil {
			return fmt.Errorf("job cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 30
		}
		cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

		deleted, err := jobs.DeleteFinishedBefore(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup import jobs: %w", err)
		}
		log.Printf("[TASK] Cleaned up %d import jobs older than %d days", deleted, retentionDays)

		if audit != nil {
			events, err := audit.DeleteOlderThan(cutoff)
			if err != nil {
				return fmt.Errorf("cleanup audit events: %w", err)
			}
			log.Printf("[TASK] Cleaned up %d audit events older than %d days", events, retentionDays)
		}

		return nil
	}
}

// NewCleanupImportJobsQueue creates a backlite queue for cleanup tasks.
func NewCleanupImportJobsQueue(jobs FinishedJobCleaner, audit AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportJobsProcessor(jobs, audit))
}
