package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	runsTable      = "reconciliation_runs"
	canonicalTable = "canonical_transactions"
	auditTable     = "duplicate_audit"
)

// StartRunWithClient inserts a reconciliation_runs row with status=RUNNING
// and returns the generated run_id.
func StartRunWithClient(ctx context.Context, client *bigquery.Client, dataset, source string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			source,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@source,
			@started_ts,
			@status
		)
	`, dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source", Value: source},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: string(domain.RunStatusRunning)},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// MarkRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned: the caller is already on an error path.
func MarkRunFailedWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, runErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(domain.RunStatusFailed)},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceededWithClient sets status=SUCCESS, finished_ts and the batch
// summary, and clears error_message.
func MarkRunSucceededWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, summary domain.RunSummary) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    raw_records = @raw_records,
		    kept_records = @kept_records,
		    duplicates = @duplicates,
		    report_passed = @report_passed
		WHERE run_id = @run_id
	`, dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(domain.RunStatusSuccess)},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "raw_records", Value: summary.RawRecords},
		{Name: "kept_records", Value: summary.KeptRecords},
		{Name: "duplicates", Value: summary.Duplicates},
		{Name: "report_passed", Value: summary.ReportPassed},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// GetRunWithClient loads one run. It returns nil, nil when no such run exists.
func GetRunWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string) (*domain.Run, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			source,
			started_ts,
			finished_ts,
			status,
			error_message,
			raw_records,
			kept_records,
			duplicates,
			report_passed
		FROM %s.%s
		WHERE run_id = @run_id
		LIMIT 1
	`, dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetRun: query read: %w", err)
	}

	var row ReconciliationRunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetRun: iter next: %w", err)
	}
	run := row.ToDomain()
	return &run, nil
}

// runDML runs a DML statement and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
