package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobStatus(t *testing.T, s *Store, id string) jobs.JobStatus {
	t.Helper()
	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		return ""
	}
	return job.Status
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ReconcileJob) error {
		job.RunID = "run-" + job.JobID
		job.Summary = &domain.RunSummary{RawRecords: 5, KeptRecords: 4, Duplicates: 1, ReportPassed: true}
		return nil
	}))
	defer q.Close()

	job := &jobs.ReconcileJob{Source: "gs://bucket/batch.csv"}
	require.NoError(t, q.PublishReconcile(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "run-"+job.JobID, got.RunID)
	assert.Equal(t, 4, got.Summary.KeptRecords)
	assert.NotNil(t, got.CompletedAt)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.Backoff = func(int) time.Duration { return time.Millisecond }

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ReconcileJob) error {
		calls.Add(1)
		return errors.New("transient")
	}))
	defer q.Close()

	job := &jobs.ReconcileJob{Source: "bq:raw", MaxRetries: 2}
	require.NoError(t, q.PublishReconcile(ctx, job))

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "transient", got.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_RetrySucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.Backoff = func(int) time.Duration { return time.Millisecond }

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ReconcileJob) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))
	defer q.Close()

	job := &jobs.ReconcileJob{Source: "gs://bucket/batch.csv"}
	require.NoError(t, q.PublishReconcile(ctx, job))

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_ClosedQueueRejects(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "second close is a no-op")

	err := q.PublishReconcile(context.Background(), &jobs.ReconcileJob{Source: "x"})
	assert.True(t, errors.Is(err, jobs.ErrQueueClosed))

	err = q.Start(context.Background(), func(context.Context, *jobs.ReconcileJob) error { return nil })
	assert.True(t, errors.Is(err, jobs.ErrQueueClosed))
}

func TestQueue_PublishHonoursContext(t *testing.T) {
	q := NewQueue(0, 1, nil)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.PublishReconcile(ctx, &jobs.ReconcileJob{Source: "x"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
