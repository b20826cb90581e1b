// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// TaskEnqueuer hands tasks to the background queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// AuditCleanupScheduler periodically removes expired audit events. With a
// task queue the job is enqueued; without one it runs inline.
type AuditCleanupScheduler struct {
	queue   TaskEnqueuer
	cleaner tasks.AuditEventCleaner
	config  config.Audit

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates the scheduler. queue may be nil.
func NewAuditCleanupScheduler(queue TaskEnqueuer, cleaner tasks.AuditEventCleaner, cfg config.Audit) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		queue:   queue,
		cleaner: cleaner,
		config:  cfg,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the scheduler.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.config.CleanupSchedule == "" {
		log.Printf("Audit cleanup scheduler: disabled")
		return nil
	}
	if err := ValidateSchedule(s.config.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.CleanupSchedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.CleanupSchedule, func() {
		if err := s.RunNow(context.Background()); err != nil {
			log.Printf("Audit cleanup: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Printf("Audit cleanup scheduler: started with schedule '%s', retention %d days", s.config.CleanupSchedule, s.config.RetentionDays)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops the cron loop.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	log.Printf("Audit cleanup scheduler: stopped")
}

// RunNow performs one cleanup: enqueued when a queue is configured,
// otherwise synchronously.
func (s *AuditCleanupScheduler) RunNow(ctx context.Context) error {
	task := tasks.CleanupAuditEventsTask{RetentionDays: s.config.RetentionDays}

	if s.queue != nil {
		id, err := s.queue.Enqueue(ctx, task)
		if err != nil {
			return err
		}
		log.Printf("Audit cleanup: enqueued task %s", id)
		return nil
	}

	return tasks.CleanupAuditEventsProcessor(s.cleaner)(ctx, task)
}

func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job fires next, or nil when stopped.
func (s *AuditCleanupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}
