// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"fmt"
	"log"
	"sync"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mlukasik/filmlog/internal/tasks"
)

// TaskEnqueuer enqueues background tasks.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// CleanupScheduler periodically enqueues the import job retention sweep.
type CleanupScheduler struct {
	queue         TaskEnqueuer
	schedule      string
	retentionDays int

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewCleanupScheduler creates a scheduler enqueueing a cleanup task on the
// given cron schedule.
func NewCleanupScheduler(queue TaskEnqueuer, schedule string, retentionDays int) *CleanupScheduler {
	return &CleanupScheduler{
		queue:         queue,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the schedule. Safe to call once; subsequent calls are no-ops.
func (s *CleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		task := tasks.CleanupImportJobsTask{RetentionDays: s.retentionDays}
		if _, err := s.queue.Add(task).Save(); err != nil {
			log.Printf("Cleanup scheduler: failed to enqueue task: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Cleanup scheduler started (schedule %q, retention %d days)", s.schedule, s.retentionDays)
	return nil
}

// Stop halts the schedule. Waits for a running enqueue to finish.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Printf("Cleanup scheduler stopped")
}
