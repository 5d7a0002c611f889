// Package importjobs provides database operations for import jobs and their
// per-item outcomes.
//
// Counter updates are single atomic row updates; the orchestrator is the
// only writer for a job's counters, so no further locking is needed. State
// transitions are guarded by the current status in the WHERE clause, which
// keeps terminal states immutable even under a misbehaving caller.
package importjobs

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/filmlog/internal/entities"
)

// ErrNotFound is returned when a job does not exist or is not visible to the
// caller. Ownership misses map to the same error so job existence never
// leaks across users.
var ErrNotFound = errors.New("import job not found")

// Repository handles all import job database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new import jobs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateJobWithItems inserts the job header in pending state together with
// one pending item row per parsed import item, in source order, in a single
// transaction.
func (r *Repository) CreateJobWithItems(job *entities.ImportJob, items []entities.ImportJobItem) error {
	job.Status = entities.ImportJobPending
	job.TotalItems = len(items)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("create import job: %w", err)
		}
		for i := range items {
			items[i].ImportJobID = job.ID
			items[i].Status = entities.ImportItemPending
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("create import job items: %w", err)
			}
		}
		return nil
	})
}

// GetJob retrieves a job by ID regardless of owner. Used by the background
// task, which trusts its own payload.
func (r *Repository) GetJob(jobID uint) (*entities.ImportJob, error) {
	var job entities.ImportJob
	err := r.db.First(&job, jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobForUser retrieves a job only if it belongs to the given user.
func (r *Repository) GetJobForUser(jobID, userID uint) (*entities.ImportJob, error) {
	var job entities.ImportJob
	err := r.db.Where("id = ? AND user_id = ?", jobID, userID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetUserJobs retrieves all jobs for a user, most recent first.
func (r *Repository) GetUserJobs(userID uint) ([]entities.ImportJob, error) {
	var jobs []entities.ImportJob
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&jobs).Error
	return jobs, err
}

// GetPendingItems returns a job's unprocessed items in source order.
func (r *Repository) GetPendingItems(jobID uint) ([]entities.ImportJobItem, error) {
	var items []entities.ImportJobItem
	err := r.db.Where("import_job_id = ? AND status = ?", jobID, entities.ImportItemPending).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// GetJobItems returns one page of a job's items in source order, optionally
// restricted to failures. The second return reports whether more items
// follow the page.
func (r *Repository) GetJobItems(jobID uint, failedOnly bool, limit, offset int) ([]entities.ImportJobItem, bool, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.Where("import_job_id = ?", jobID)
	if failedOnly {
		query = query.Where("status = ?", entities.ImportItemFailed)
	}

	// Fetch one extra row to detect a following page.
	var items []entities.ImportJobItem
	err := query.Order("id ASC").Limit(limit + 1).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, nil
}

// MarkProcessing transitions a pending job to processing and stamps the
// start time. Returns ErrNotFound if the job is missing or already past
// pending.
func (r *Repository) MarkProcessing(jobID uint) error {
	now := time.Now()
	result := r.db.Model(&entities.ImportJob{}).
		Where("id = ? AND status = ?", jobID, entities.ImportJobPending).
		Updates(map[string]any{
			"status":     entities.ImportJobProcessing,
			"started_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FinalizeItem persists one item's terminal outcome and advances the parent
// job's counters in the same transaction, so an in-flight poll always sees
// processed = successful + failed + skipped.
func (r *Repository) FinalizeItem(item *entities.ImportJobItem) error {
	var counterColumn string
	switch item.Status {
	case entities.ImportItemSuccess:
		counterColumn = "successful_items"
	case entities.ImportItemFailed:
		counterColumn = "failed_items"
	case entities.ImportItemSkipped:
		counterColumn = "skipped_items"
	default:
		return fmt.Errorf("cannot finalize item %d in status %q", item.ID, item.Status)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("save item: %w", err)
		}

		result := tx.Model(&entities.ImportJob{}).
			Where("id = ? AND status = ?", item.ImportJobID, entities.ImportJobProcessing).
			Updates(map[string]any{
				"processed_items": gorm.Expr("processed_items + 1"),
				counterColumn:     gorm.Expr(counterColumn + " + 1"),
			})
		if result.Error != nil {
			return fmt.Errorf("advance counters: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("job %d is not processing", item.ImportJobID)
		}
		return nil
	})
}

// CompleteJob transitions a processing job to completed.
func (r *Repository) CompleteJob(jobID uint) error {
	now := time.Now()
	result := r.db.Model(&entities.ImportJob{}).
		Where("id = ? AND status = ?", jobID, entities.ImportJobProcessing).
		Updates(map[string]any{
			"status":       entities.ImportJobCompleted,
			"completed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob marks a non-terminal job failed with a top-level error message.
// Already-terminal jobs are left untouched.
func (r *Repository) FailJob(jobID uint, message string) error {
	now := time.Now()
	return r.db.Model(&entities.ImportJob{}).
		Where("id = ? AND status IN ?", jobID,
			[]entities.ImportJobStatus{entities.ImportJobPending, entities.ImportJobProcessing}).
		Updates(map[string]any{
			"status":        entities.ImportJobFailed,
			"error_message": message,
			"completed_at":  now,
		}).Error
}

// DeleteFinishedBefore removes terminal jobs created before the cutoff along
// with their items, returning the number of jobs deleted.
func (r *Repository) DeleteFinishedBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Model(&entities.ImportJob{}).
			Where("status IN ? AND created_at < ?",
				[]entities.ImportJobStatus{entities.ImportJobCompleted, entities.ImportJobFailed}, cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("import_job_id IN ?", ids).Delete(&entities.ImportJobItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&entities.ImportJob{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
