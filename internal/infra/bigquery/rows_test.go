package bigquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/shopspring/decimal"
)

func TestRawRecordRow_ToDomain(t *testing.T) {
	row := RawRecordRow{
		TransactionID: bigquery.NullString{StringVal: "TRX_001", Valid: true},
		Amount:        bigquery.NullString{StringVal: "€45.50", Valid: true},
		CustomerEmail: bigquery.NullString{Valid: false},
	}

	got := row.ToDomain(7)

	if got.TransactionID != "TRX_001" {
		t.Errorf("TransactionID = %q, want TRX_001", got.TransactionID)
	}
	if got.Amount != "€45.50" {
		t.Errorf("Amount = %q, want €45.50", got.Amount)
	}
	if !domain.IsNull(got.CustomerEmail) {
		t.Errorf("CustomerEmail = %q, want null", got.CustomerEmail)
	}
	if got.RowNumber != 7 {
		t.Errorf("RowNumber = %d, want 7", got.RowNumber)
	}
}

func TestCanonicalRow_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record domain.NormalizedRecord
	}{
		{
			name: "fully parsed record",
			record: domain.NormalizedRecord{
				TransactionID:    "TRX_001",
				CustomerID:       "C1",
				CustomerEmail:    "john@gmail.com",
				ProductSKU:       "SKU-1",
				Category:         "Electronics",
				ShipCountry:      "United States",
				AmountUSD:        decimal.NewNullDecimal(decimal.RequireFromString("49.14")),
				CurrencyDetected: "EUR",
				OrderDate:        civil.Date{Year: 2024, Month: time.March, Day: 16},
				Quantity:         3,
				EmailWasRepaired: true,
				RowNumber:        4,
				Status:           domain.StatusKept,
			},
		},
		{
			name: "unparsed amount and date",
			record: domain.NormalizedRecord{
				TransactionID: "TRX_002",
				CustomerEmail: "customer_c2@inferred.com",
				Category:      domain.UncategorizedCategory,
				ShipCountry:   domain.UnknownCountry,
				Quantity:      1,
				Unparsed: map[domain.Field]string{
					domain.FieldAmount:    "",
					domain.FieldOrderDate: "",
				},
				EmailWasInferred:    true,
				QuantityWasAdjusted: true,
				RowNumber:           9,
				Status:              domain.StatusKept,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewCanonicalRow("run-1", &tt.record, now)
			if row.RunID != "run-1" {
				t.Errorf("RunID = %q, want run-1", row.RunID)
			}
			if row.AmountUSD == nil && tt.record.AmountUSD.Valid {
				t.Fatalf("AmountUSD not mapped")
			}
			if row.OrderDate.Valid != tt.record.HasOrderDate() {
				t.Errorf("OrderDate.Valid = %v, want %v", row.OrderDate.Valid, tt.record.HasOrderDate())
			}
			if len(row.UnparsedFields) != len(tt.record.Unparsed) {
				t.Errorf("UnparsedFields = %v, want %d entries", row.UnparsedFields, len(tt.record.Unparsed))
			}

			back := row.ToDomain()
			if back.TransactionID != tt.record.TransactionID || back.CustomerEmail != tt.record.CustomerEmail {
				t.Errorf("identity mismatch: got %+v", back)
			}
			if back.AmountUSD.Valid != tt.record.AmountUSD.Valid {
				t.Fatalf("AmountUSD.Valid = %v, want %v", back.AmountUSD.Valid, tt.record.AmountUSD.Valid)
			}
			if back.AmountUSD.Valid && !back.AmountUSD.Decimal.Equal(tt.record.AmountUSD.Decimal) {
				t.Errorf("AmountUSD = %s, want %s", back.AmountUSD.Decimal, tt.record.AmountUSD.Decimal)
			}
			if back.OrderDate != tt.record.OrderDate {
				t.Errorf("OrderDate = %v, want %v", back.OrderDate, tt.record.OrderDate)
			}
			for f := range tt.record.Unparsed {
				if !back.IsUnparsed(f) {
					t.Errorf("field %s should stay unparsed", f)
				}
			}
			if back.Quantity != tt.record.Quantity || back.RowNumber != tt.record.RowNumber {
				t.Errorf("quantity/row mismatch: got %d/%d", back.Quantity, back.RowNumber)
			}
		})
	}
}

func TestReconciliationRunRow_ToDomain(t *testing.T) {
	started := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)

	row := ReconciliationRunRow{
		RunID:        "run-1",
		Source:       "gs://bucket/batch.csv",
		StartedTS:    started,
		FinishedTS:   bigquery.NullTimestamp{Timestamp: finished, Valid: true},
		Status:       string(domain.RunStatusSuccess),
		RawRecords:   bigquery.NullInt64{Int64: 10, Valid: true},
		KeptRecords:  bigquery.NullInt64{Int64: 8, Valid: true},
		Duplicates:   bigquery.NullInt64{Int64: 2, Valid: true},
		ReportPassed: bigquery.NullBool{Bool: true, Valid: true},
	}

	run := row.ToDomain()
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("Status = %s", run.Status)
	}
	if run.FinishedAt == nil || !run.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", run.FinishedAt, finished)
	}
	want := domain.RunSummary{RawRecords: 10, KeptRecords: 8, Duplicates: 2, ReportPassed: true}
	if run.Summary != want {
		t.Errorf("Summary = %+v, want %+v", run.Summary, want)
	}

	row.FinishedTS = bigquery.NullTimestamp{}
	if row.ToDomain().FinishedAt != nil {
		t.Error("FinishedAt should be nil for a running run")
	}
}

func TestNewDuplicateAuditRow(t *testing.T) {
	now := time.Now()
	entry := domain.DuplicateEntry{TransactionID: "TRX_001", DuplicateRow: 3, SurvivorRow: 1, Reason: "survivor appears earlier in the batch"}

	row := NewDuplicateAuditRow("run-1", entry, now)
	if row.DuplicateRow != 3 || row.SurvivorRow != 1 || row.TransactionID != "TRX_001" || row.RunID != "run-1" {
		t.Errorf("unexpected row %+v", row)
	}
}

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q", got)
	}
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}
	if got := truncateError(errors.New(string(long))); len(got) != 2000 {
		t.Errorf("len = %d, want 2000", len(got))
	}
}

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  bool
	}{
		{"plain", "raw_transactions", true},
		{"leading underscore", "_staging", true},
		{"dotted", "other.table", false},
		{"injection", "t; DROP TABLE x", false},
		{"leading digit", "1table", false},
		{"empty", "", false},
		{"longest allowed", "t" + strings.Repeat("x", maxTableNameLen-1), true},
		{"too long", "t" + strings.Repeat("x", maxTableNameLen), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validTableName(tt.table); got != tt.want {
				t.Errorf("validTableName(%q) = %v, want %v", tt.table, got, tt.want)
			}
		})
	}
}

func TestQueryRawRecordsWithClient_RejectsInvalidTable(t *testing.T) {
	for _, table := range []string{"", "x; DROP TABLE y", "ds.table", strings.Repeat("t", maxTableNameLen+1)} {
		_, err := QueryRawRecordsWithClient(context.Background(), nil, "sales", table)
		if !errors.Is(err, ErrInvalidTableName) {
			t.Errorf("QueryRawRecordsWithClient(%q) error = %v, want ErrInvalidTableName", table, err)
		}
	}
}
