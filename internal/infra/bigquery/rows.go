package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/shopspring/decimal"
)

// RawRecordRow is one row of the raw_transactions staging table. Every column
// is a NULLABLE STRING; the engine decides what the text means.
type RawRecordRow struct {
	TransactionID bigquery.NullString `bigquery:"transaction_id"`
	CustomerID    bigquery.NullString `bigquery:"customer_id"`
	CustomerEmail bigquery.NullString `bigquery:"customer_email"`
	ProductSKU    bigquery.NullString `bigquery:"product_sku"`
	Quantity      bigquery.NullString `bigquery:"quantity"`
	Amount        bigquery.NullString `bigquery:"amount"`
	Currency      bigquery.NullString `bigquery:"currency"`
	OrderDate     bigquery.NullString `bigquery:"order_date"`
	ShipCountry   bigquery.NullString `bigquery:"ship_country"`
	PaymentMethod bigquery.NullString `bigquery:"payment_method"`
	Category      bigquery.NullString `bigquery:"category"`
}

// ToDomain converts the row; SQL NULL becomes the empty string.
func (r *RawRecordRow) ToDomain(rowNumber int) domain.RawRecord {
	return domain.RawRecord{
		TransactionID: nullString(r.TransactionID),
		CustomerID:    nullString(r.CustomerID),
		CustomerEmail: nullString(r.CustomerEmail),
		ProductSKU:    nullString(r.ProductSKU),
		Quantity:      nullString(r.Quantity),
		Amount:        nullString(r.Amount),
		Currency:      nullString(r.Currency),
		OrderDate:     nullString(r.OrderDate),
		ShipCountry:   nullString(r.ShipCountry),
		PaymentMethod: nullString(r.PaymentMethod),
		Category:      nullString(r.Category),
		RowNumber:     rowNumber,
	}
}

// CanonicalRow is one row of canonical_transactions.
type CanonicalRow struct {
	RunID         string `bigquery:"run_id"`         // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	CustomerID    bigquery.NullString `bigquery:"customer_id"`    // NULLABLE
	CustomerEmail string              `bigquery:"customer_email"` // REQUIRED
	ProductSKU    bigquery.NullString `bigquery:"product_sku"`    // NULLABLE
	PaymentMethod bigquery.NullString `bigquery:"payment_method"` // NULLABLE
	Category      string              `bigquery:"category"`       // REQUIRED
	ShipCountry   string              `bigquery:"ship_country"`   // REQUIRED

	AmountUSD        *big.Rat            `bigquery:"amount_usd"`        // NULLABLE NUMERIC
	CurrencyDetected bigquery.NullString `bigquery:"currency_detected"` // NULLABLE
	OrderDate        bigquery.NullDate   `bigquery:"order_date"`        // NULLABLE
	Quantity         int64               `bigquery:"quantity"`          // REQUIRED

	EmailWasInferred    bool `bigquery:"email_was_inferred"`
	EmailWasRepaired    bool `bigquery:"email_was_repaired"`
	QuantityWasAdjusted bool `bigquery:"quantity_was_adjusted"`
	OrderDateAmbiguous  bool `bigquery:"order_date_ambiguous"`

	UnparsedFields []string `bigquery:"unparsed_fields"` // REPEATED STRING
	RowNumber      int64    `bigquery:"row_number"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewCanonicalRow maps a kept record to its warehouse row.
func NewCanonicalRow(runID string, r *domain.NormalizedRecord, now time.Time) *CanonicalRow {
	row := &CanonicalRow{
		RunID:               runID,
		TransactionID:       r.TransactionID,
		CustomerID:          toNullString(r.CustomerID),
		CustomerEmail:       r.CustomerEmail,
		ProductSKU:          toNullString(r.ProductSKU),
		PaymentMethod:       toNullString(r.PaymentMethod),
		Category:            r.Category,
		ShipCountry:         r.ShipCountry,
		CurrencyDetected:    toNullString(r.CurrencyDetected),
		Quantity:            int64(r.Quantity),
		EmailWasInferred:    r.EmailWasInferred,
		EmailWasRepaired:    r.EmailWasRepaired,
		QuantityWasAdjusted: r.QuantityWasAdjusted,
		OrderDateAmbiguous:  r.OrderDateAmbiguous,
		RowNumber:           int64(r.RowNumber),
		CreatedTS:           now,
	}
	if r.AmountUSD.Valid {
		row.AmountUSD = r.AmountUSD.Decimal.Rat()
	}
	if r.HasOrderDate() {
		row.OrderDate = bigquery.NullDate{Date: r.OrderDate, Valid: true}
	}
	for _, f := range []domain.Field{domain.FieldAmount, domain.FieldOrderDate, domain.FieldQuantity, domain.FieldCustomerEmail} {
		if r.IsUnparsed(f) {
			row.UnparsedFields = append(row.UnparsedFields, string(f))
		}
	}
	return row
}

// ToDomain converts the row back into a kept record. Raw text of unparsed
// fields is not stored, so Unparsed carries only the field names.
func (r *CanonicalRow) ToDomain() domain.NormalizedRecord {
	rec := domain.NormalizedRecord{
		TransactionID:       r.TransactionID,
		CustomerID:          nullString(r.CustomerID),
		CustomerEmail:       r.CustomerEmail,
		ProductSKU:          nullString(r.ProductSKU),
		PaymentMethod:       nullString(r.PaymentMethod),
		Category:            r.Category,
		ShipCountry:         r.ShipCountry,
		CurrencyDetected:    nullString(r.CurrencyDetected),
		Quantity:            int(r.Quantity),
		EmailWasInferred:    r.EmailWasInferred,
		EmailWasRepaired:    r.EmailWasRepaired,
		QuantityWasAdjusted: r.QuantityWasAdjusted,
		OrderDateAmbiguous:  r.OrderDateAmbiguous,
		RowNumber:           int(r.RowNumber),
		Status:              domain.StatusKept,
	}
	if r.AmountUSD != nil {
		if d, err := decimal.NewFromString(r.AmountUSD.FloatString(2)); err == nil {
			rec.AmountUSD = decimal.NewNullDecimal(d)
		}
	}
	if r.OrderDate.Valid {
		rec.OrderDate = r.OrderDate.Date
	}
	if len(r.UnparsedFields) > 0 {
		rec.Unparsed = make(map[domain.Field]string, len(r.UnparsedFields))
		for _, f := range r.UnparsedFields {
			rec.Unparsed[domain.Field(f)] = ""
		}
	}
	return rec
}

// DuplicateAuditRow is one row of duplicate_audit.
type DuplicateAuditRow struct {
	RunID         string    `bigquery:"run_id"`
	TransactionID string    `bigquery:"transaction_id"`
	DuplicateRow  int64     `bigquery:"duplicate_row"`
	SurvivorRow   int64     `bigquery:"survivor_row"`
	Reason        string    `bigquery:"reason"`
	CreatedTS     time.Time `bigquery:"created_ts"`
}

// NewDuplicateAuditRow maps one audit entry to its warehouse row.
func NewDuplicateAuditRow(runID string, e domain.DuplicateEntry, now time.Time) *DuplicateAuditRow {
	return &DuplicateAuditRow{
		RunID:         runID,
		TransactionID: e.TransactionID,
		DuplicateRow:  int64(e.DuplicateRow),
		SurvivorRow:   int64(e.SurvivorRow),
		Reason:        e.Reason,
		CreatedTS:     now,
	}
}

// ReconciliationRunRow is one row of reconciliation_runs.
type ReconciliationRunRow struct {
	RunID  string `bigquery:"run_id"` // REQUIRED
	Source string `bigquery:"source"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	RawRecords   bigquery.NullInt64 `bigquery:"raw_records"`
	KeptRecords  bigquery.NullInt64 `bigquery:"kept_records"`
	Duplicates   bigquery.NullInt64 `bigquery:"duplicates"`
	ReportPassed bigquery.NullBool  `bigquery:"report_passed"`
}

// ToDomain converts the row for display.
func (r *ReconciliationRunRow) ToDomain() domain.Run {
	run := domain.Run{
		RunID:        r.RunID,
		Source:       r.Source,
		Status:       domain.RunStatus(r.Status),
		StartedAt:    r.StartedTS,
		ErrorMessage: r.ErrorMessage,
		Summary: domain.RunSummary{
			RawRecords:   int(r.RawRecords.Int64),
			KeptRecords:  int(r.KeptRecords.Int64),
			Duplicates:   int(r.Duplicates.Int64),
			ReportPassed: r.ReportPassed.Bool,
		},
	}
	if r.FinishedTS.Valid {
		finished := r.FinishedTS.Timestamp
		run.FinishedAt = &finished
	}
	return run
}

func nullString(s bigquery.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.StringVal
}

func toNullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// truncateError bounds error_message to what the runs table keeps.
func truncateError(err error) string {
	if err == nil {
		return ""
	}
	const maxLen = 2000
	msg := err.Error()
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
