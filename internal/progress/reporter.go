// Package progress is the read path over persisted import job state, polled
// by clients while a job runs. It never mutates jobs.
package progress

import (
	"math"

	"github.com/mlukasik/filmlog/internal/entities"
)

// JobReader is the read-only persistence contract the reporter needs.
type JobReader interface {
	GetJobForUser(jobID, userID uint) (*entities.ImportJob, error)
	GetUserJobs(userID uint) ([]entities.ImportJob, error)
	GetJobItems(jobID uint, failedOnly bool, limit, offset int) ([]entities.ImportJobItem, bool, error)
}

// JobProgress is a job snapshot with the derived completion percentage.
type JobProgress struct {
	entities.ImportJob
	Percentage int `json:"percentage"`
}

// ItemsPage is one page of a job's item outcomes.
type ItemsPage struct {
	Items   []entities.ImportJobItem `json:"items"`
	HasMore bool                     `json:"has_more"`
}

// Reporter computes derived progress fields over persisted job state.
type Reporter struct {
	jobs JobReader
}

// NewReporter creates a Reporter.
func NewReporter(jobs JobReader) *Reporter {
	return &Reporter{jobs: jobs}
}

// GetJob returns a user's job with its percentage. Jobs belonging to another
// user surface as not-found, never as a permission error.
func (r *Reporter) GetJob(jobID, userID uint) (*JobProgress, error) {
	job, err := r.jobs.GetJobForUser(jobID, userID)
	if err != nil {
		return nil, err
	}
	return &JobProgress{
		ImportJob:  *job,
		Percentage: Percentage(job.ProcessedItems, job.TotalItems),
	}, nil
}

// GetJobItems returns one page of the job's items, optionally failures only.
// The ownership check runs before any item query.
func (r *Reporter) GetJobItems(jobID, userID uint, failedOnly bool, limit, offset int) (*ItemsPage, error) {
	if _, err := r.jobs.GetJobForUser(jobID, userID); err != nil {
		return nil, err
	}

	items, hasMore, err := r.jobs.GetJobItems(jobID, failedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ItemsPage{Items: items, HasMore: hasMore}, nil
}

// GetUserJobs returns the user's jobs, most recent first, each with its
// percentage.
func (r *Reporter) GetUserJobs(userID uint) ([]JobProgress, error) {
	jobs, err := r.jobs.GetUserJobs(userID)
	if err != nil {
		return nil, err
	}

	progress := make([]JobProgress, 0, len(jobs))
	for _, job := range jobs {
		progress = append(progress, JobProgress{
			ImportJob:  job,
			Percentage: Percentage(job.ProcessedItems, job.TotalItems),
		})
	}
	return progress, nil
}

// Percentage is round(processed/total*100), or 0 for an empty job.
func Percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
