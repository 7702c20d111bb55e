package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/txclean/internal/jobs"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/google/uuid"
)

// DefaultWorkers is the consumer count used when NewQueue gets workers <= 0.
const DefaultWorkers = 5

// Queue is a channel-backed Publisher and Consumer for single-instance
// deployments and tests.
type Queue struct {
	jobChan   chan *jobs.ReconcileJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool

	// Backoff returns the delay before retry n (1-based).
	Backoff func(retry int) time.Duration
}

// NewQueue creates a queue holding up to bufferSize pending jobs.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		jobChan:   make(chan *jobs.ReconcileJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
		Backoff:   linearBackoff,
	}
}

func linearBackoff(retry int) time.Duration {
	return time.Duration(retry) * time.Second
}

// PublishReconcile fills defaults, saves the job and enqueues it.
func (q *Queue) PublishReconcile(ctx context.Context, job *jobs.ReconcileJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishReconcile: saving job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start launches the workers.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs the handler once and schedules a retry on failure while
// retries remain.
func (q *Queue) processJob(ctx context.Context, job *jobs.ReconcileJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("source", job.Source).Logger()

	now := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	job.CompletedAt = nil
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		log.Info().Str("run_id", job.RunID).Msg("Reconcile job completed")
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		log.Error().Err(err).Int("retry_count", job.RetryCount).Msg("Reconcile job failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)
	log.Warn().Err(err).Int("retry_count", job.RetryCount).Msg("Reconcile job will be retried")

	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil
	time.AfterFunc(q.Backoff(job.RetryCount), func() {
		if err := q.PublishReconcile(ctx, &retry); err != nil {
			log.Error().Err(err).Msg("Re-enqueue failed")
		}
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ReconcileJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Saving job state failed")
	}
}

// Stop closes the queue and waits for in-flight jobs.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
