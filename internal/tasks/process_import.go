package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// JobRunner processes one import job to completion.
type JobRunner interface {
	Run(ctx context.Context, jobID uint) error
}

// ProcessImportJobTask drives one import job through its item loop. Exactly
// one task is enqueued per upload.
type ProcessImportJobTask struct {
	JobID uint `json:"job_id"`
}

// Config returns the queue configuration for import job tasks. MaxAttempts
// is 1: terminal job states are immutable, so a redelivered task would have
// nothing safe to do, and per-item failures are handled inside the run.
func (t ProcessImportJobTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "process_import_job",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ProcessImportJobProcessor creates a processor function for
// ProcessImportJobTask.
func ProcessImportJobProcessor(runner JobRunner) backlite.QueueProcessor[ProcessImportJobTask] {
	return func(ctx context.Context, task ProcessImportJobTask) error {
		if runner == nil {
			return fmt.Errorf("job runner not configured")
		}

		if err := runner.Run(ctx, task.JobID); err != nil {
			return fmt.Errorf("process import job %d: %w", task.JobID, err)
		}
		return nil
	}
}

// NewProcessImportJobQueue creates a backlite queue for import job tasks.
func NewProcessImportJobQueue(runner JobRunner) backlite.Queue {
	return backlite.NewQueue(ProcessImportJobProcessor(runner))
}
