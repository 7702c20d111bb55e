// Package rawcsv decodes raw transaction batches from CSV and encodes
// canonical datasets back to CSV.
package rawcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
)

// ErrMissingTransactionID is returned when the header has no transaction_id column.
var ErrMissingTransactionID = errors.New("rawcsv: header has no transaction_id column")

var columnSetters = map[string]func(*domain.RawRecord, string){
	"transaction_id": func(r *domain.RawRecord, v string) { r.TransactionID = v },
	"customer_id":    func(r *domain.RawRecord, v string) { r.CustomerID = v },
	"customer_email": func(r *domain.RawRecord, v string) { r.CustomerEmail = v },
	"product_sku":    func(r *domain.RawRecord, v string) { r.ProductSKU = v },
	"quantity":       func(r *domain.RawRecord, v string) { r.Quantity = v },
	"amount":         func(r *domain.RawRecord, v string) { r.Amount = v },
	"currency":       func(r *domain.RawRecord, v string) { r.Currency = v },
	"order_date":     func(r *domain.RawRecord, v string) { r.OrderDate = v },
	"ship_country":   func(r *domain.RawRecord, v string) { r.ShipCountry = v },
	"payment_method": func(r *domain.RawRecord, v string) { r.PaymentMethod = v },
	"category":       func(r *domain.RawRecord, v string) { r.Category = v },
}

// Read decodes every data row of a CSV stream. Header names are matched
// case-insensitively; unknown columns are ignored and missing optional columns
// stay empty (null). RowNumber counts data rows from 1.
func Read(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingTransactionID
	}
	if err != nil {
		return nil, fmt.Errorf("rawcsv.Read: header: %w", err)
	}

	setters := make([]func(*domain.RawRecord, string), len(header))
	hasID := false
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		setters[i] = columnSetters[key]
		if key == "transaction_id" {
			hasID = true
		}
	}
	if !hasID {
		return nil, ErrMissingTransactionID
	}

	var records []domain.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rawcsv.Read: row %d: %w", len(records)+1, err)
		}
		rec := domain.RawRecord{RowNumber: len(records) + 1}
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, v)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// CanonicalHeader is the column order written by WriteCanonical.
var CanonicalHeader = []string{
	"transaction_id", "customer_id", "customer_email", "product_sku", "quantity",
	"amount_usd", "currency_detected", "order_date", "ship_country", "payment_method",
	"category", "email_was_inferred", "quantity_was_adjusted",
}

// WriteCanonical encodes a canonical dataset as CSV with CanonicalHeader.
func WriteCanonical(w io.Writer, records domain.CanonicalDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CanonicalHeader); err != nil {
		return fmt.Errorf("rawcsv.WriteCanonical: header: %w", err)
	}
	for _, r := range records {
		amount := ""
		if r.AmountUSD.Valid {
			amount = r.AmountUSD.Decimal.StringFixed(2)
		}
		date := ""
		if r.HasOrderDate() {
			date = r.OrderDate.String()
		}
		row := []string{
			r.TransactionID, r.CustomerID, r.CustomerEmail, r.ProductSKU, strconv.Itoa(r.Quantity),
			amount, r.CurrencyDetected, date, r.ShipCountry, r.PaymentMethod,
			r.Category, strconv.FormatBool(r.EmailWasInferred), strconv.FormatBool(r.QuantityWasAdjusted),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("rawcsv.WriteCanonical: %s: %w", r.TransactionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
