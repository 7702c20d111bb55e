package pipeline

import (
	"context"

	"github.com/dvloznov/txclean/internal/domain"
)

// RecordSource yields one raw batch.
type RecordSource interface {
	// Load reads the whole batch.
	Load(ctx context.Context) ([]domain.RawRecord, error)

	// Describe names the batch for the runs table and logs.
	Describe() string
}

// ResultSink persists the outcome of a run.
type ResultSink interface {
	Store(ctx context.Context, runID string, result *Result) error
}

// RunTracker records the lifecycle of a run.
type RunTracker interface {
	// StartRun registers a RUNNING run and returns its id.
	StartRun(ctx context.Context, source string) (string, error)

	// MarkRunFailed sets status=FAILED. It never fails the caller.
	MarkRunFailed(ctx context.Context, runID string, runErr error)

	// MarkRunSucceeded sets status=SUCCESS with the batch summary.
	MarkRunSucceeded(ctx context.Context, runID string, summary domain.RunSummary) error
}

// WarehouseRepository is the part of the BigQuery repository used by the
// BigQuery source and sink.
type WarehouseRepository interface {
	QueryRawRecords(ctx context.Context, table string) ([]domain.RawRecord, error)
	InsertCanonicalRecords(ctx context.Context, runID string, records domain.CanonicalDataset) error
	InsertAuditTrail(ctx context.Context, runID string, audit domain.AuditTrail) error
}
