package bigquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txclean/internal/domain"
	"google.golang.org/api/iterator"
)

// insertBatchSize bounds one streaming insert request.
const insertBatchSize = 500

// ErrInvalidTableName is returned for raw table names that are not plain identifiers.
var ErrInvalidTableName = errors.New("invalid table name")

// maxTableNameLen is the BigQuery limit on table name length.
const maxTableNameLen = 1024

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validTableName(table string) bool {
	return len(table) <= maxTableNameLen && tableNamePattern.MatchString(table)
}

// InsertCanonicalRecordsWithClient streams the kept records of a run into
// canonical_transactions.
func InsertCanonicalRecordsWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, records domain.CanonicalDataset) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]*CanonicalRow, len(records))
	for i := range records {
		rows[i] = NewCanonicalRow(runID, &records[i], now)
	}

	inserter := client.Dataset(dataset).Table(canonicalTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertCanonicalRecords: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// InsertAuditTrailWithClient streams the duplicate audit entries of a run
// into duplicate_audit.
func InsertAuditTrailWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, audit domain.AuditTrail) error {
	if len(audit) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]*DuplicateAuditRow, len(audit))
	for i, e := range audit {
		rows[i] = NewDuplicateAuditRow(runID, e, now)
	}

	inserter := client.Dataset(dataset).Table(auditTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertAuditTrail: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// QueryCanonicalByRunWithClient returns the kept records of one run in
// their original batch order.
func QueryCanonicalByRunWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string) (domain.CanonicalDataset, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			transaction_id,
			customer_id,
			customer_email,
			product_sku,
			payment_method,
			category,
			ship_country,
			amount_usd,
			currency_detected,
			order_date,
			quantity,
			email_was_inferred,
			email_was_repaired,
			quantity_was_adjusted,
			order_date_ambiguous,
			unparsed_fields,
			row_number,
			created_ts
		FROM %s.%s
		WHERE run_id = @run_id
		ORDER BY row_number
	`, dataset, canonicalTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryCanonicalByRun: query read: %w", err)
	}

	var records domain.CanonicalDataset
	for {
		var row CanonicalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryCanonicalByRun: iter next: %w", err)
		}
		records = append(records, row.ToDomain())
	}
	return records, nil
}

// QueryRawRecordsWithClient reads every row of a raw staging table. Rows are
// numbered in the order BigQuery returns them.
func QueryRawRecordsWithClient(ctx context.Context, client *bigquery.Client, dataset, table string) ([]domain.RawRecord, error) {
	if !validTableName(table) {
		return nil, fmt.Errorf("QueryRawRecords: %q: %w", table, ErrInvalidTableName)
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			customer_id,
			customer_email,
			product_sku,
			quantity,
			amount,
			currency,
			order_date,
			ship_country,
			payment_method,
			category
		FROM %s.%s
	`, dataset, table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryRawRecords: query read: %w", err)
	}

	var records []domain.RawRecord
	for {
		var row RawRecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryRawRecords: iter next: %w", err)
		}
		records = append(records, row.ToDomain(len(records)+1))
	}
	return records, nil
}
