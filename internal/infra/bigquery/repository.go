package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txclean/internal/domain"
)

// Repository holds a shared BigQuery client for one dataset so that a run
// does not open a new connection per operation.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository creates a Repository over project.dataset.
func NewRepository(ctx context.Context, project, dataset string) (*Repository, error) {
	if project == "" || dataset == "" {
		return nil, fmt.Errorf("NewRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun delegates to StartRunWithClient with the shared client.
func (r *Repository) StartRun(ctx context.Context, source string) (string, error) {
	return StartRunWithClient(ctx, r.client, r.dataset, source)
}

// MarkRunFailed delegates to MarkRunFailedWithClient with the shared client.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, r.client, r.dataset, runID, runErr)
}

// MarkRunSucceeded delegates to MarkRunSucceededWithClient with the shared client.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, summary domain.RunSummary) error {
	return MarkRunSucceededWithClient(ctx, r.client, r.dataset, runID, summary)
}

// GetRun delegates to GetRunWithClient with the shared client.
func (r *Repository) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return GetRunWithClient(ctx, r.client, r.dataset, runID)
}

// InsertCanonicalRecords delegates to InsertCanonicalRecordsWithClient with the shared client.
func (r *Repository) InsertCanonicalRecords(ctx context.Context, runID string, records domain.CanonicalDataset) error {
	return InsertCanonicalRecordsWithClient(ctx, r.client, r.dataset, runID, records)
}

// InsertAuditTrail delegates to InsertAuditTrailWithClient with the shared client.
func (r *Repository) InsertAuditTrail(ctx context.Context, runID string, audit domain.AuditTrail) error {
	return InsertAuditTrailWithClient(ctx, r.client, r.dataset, runID, audit)
}

// QueryCanonicalByRun delegates to QueryCanonicalByRunWithClient with the shared client.
func (r *Repository) QueryCanonicalByRun(ctx context.Context, runID string) (domain.CanonicalDataset, error) {
	return QueryCanonicalByRunWithClient(ctx, r.client, r.dataset, runID)
}

// QueryRawRecords delegates to QueryRawRecordsWithClient with the shared client.
func (r *Repository) QueryRawRecords(ctx context.Context, table string) ([]domain.RawRecord, error) {
	return QueryRawRecordsWithClient(ctx, r.client, r.dataset, table)
}
