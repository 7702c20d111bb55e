// Package jobs defines asynchronous reconciliation jobs and the queue and
// store abstractions that carry them.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/txclean/internal/domain"
)

var (
	// ErrQueueClosed is returned when publishing to or starting a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrJobNotFound is returned by stores for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// ReconcileJob asks a worker to run one batch through the engine.
type ReconcileJob struct {
	JobID string `json:"job_id"`

	// Source is a gs:// URI or a "bq:<table>" raw staging table.
	Source string `json:"source"`

	// RunID is set once the run has been registered.
	RunID string `json:"run_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	// Summary and ReportURI are filled on success.
	Summary   *domain.RunSummary `json:"summary,omitempty"`
	ReportURI string             `json:"report_uri,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishReconcile(ctx context.Context, job *ReconcileJob) error
	Close() error
}

// Consumer runs queued jobs through a handler.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may fill RunID, Summary and ReportURI. A
// returned error makes the job eligible for retry.
type JobHandler func(ctx context.Context, job *ReconcileJob) error

// JobStore persists job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReconcileJob) error
	GetJob(ctx context.Context, jobID string) (*ReconcileJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReconcileJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Source string
	Status JobStatus
	Limit  int
	Offset int
}
