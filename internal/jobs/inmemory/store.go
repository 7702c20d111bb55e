package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/txclean/internal/jobs"
)

// Store is an in-memory JobStore. Data is lost on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ReconcileJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ReconcileJob),
	}
}

// SaveJob stores a copy of the job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ReconcileJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = copyJob(job)
	return nil
}

// GetJob returns a copy of the stored job.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ReconcileJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	return copyJob(job), nil
}

// ListJobs returns matching jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ReconcileJob, error) {
	s.mu.RLock()
	result := make([]*jobs.ReconcileJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Source != "" && job.Source != filter.Source {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, copyJob(job))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].JobID < result[j].JobID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ReconcileJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus sets the status and, when non-empty, the error message.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

func copyJob(job *jobs.ReconcileJob) *jobs.ReconcileJob {
	c := *job
	if job.Summary != nil {
		summary := *job.Summary
		c.Summary = &summary
	}
	return &c
}

var _ jobs.JobStore = (*Store)(nil)
