package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

type countingCleaner struct {
	retention time.Duration
	calls     int
}

func (c *countingCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	c.calls++
	c.retention = retention
	return 2, nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	s := NewAuditCleanupScheduler(&recordingQueue{}, nil, config.Audit{RetentionDays: 30, CleanupSchedule: "0 3 * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestAuditCleanupScheduler_StopsWithContext(t *testing.T) {
	s := NewAuditCleanupScheduler(&recordingQueue{}, nil, config.Audit{CleanupSchedule: "0 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler(nil, nil, config.Audit{CleanupSchedule: "nope"})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_EmptyScheduleDisables(t *testing.T) {
	s := NewAuditCleanupScheduler(nil, nil, config.Audit{})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_RunNowEnqueues(t *testing.T) {
	queue := &recordingQueue{}
	s := NewAuditCleanupScheduler(queue, nil, config.Audit{RetentionDays: 14})

	require.NoError(t, s.RunNow(context.Background()))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, queue.tasks[0])
}

func TestAuditCleanupScheduler_RunNowEnqueueError(t *testing.T) {
	s := NewAuditCleanupScheduler(&recordingQueue{err: errors.New("queue closed")}, nil, config.Audit{})

	assert.ErrorContains(t, s.RunNow(context.Background()), "queue closed")
}

func TestAuditCleanupScheduler_RunNowInline(t *testing.T) {
	cleaner := &countingCleaner{}
	s := NewAuditCleanupScheduler(nil, cleaner, config.Audit{RetentionDays: 10})

	require.NoError(t, s.RunNow(context.Background()))

	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 10*24*time.Hour, cleaner.retention)
}
