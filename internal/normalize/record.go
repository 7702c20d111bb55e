package normalize

import (
	"context"
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/shopspring/decimal"
)

// FieldError pairs a failed field with its parse error.
type FieldError struct {
	Field domain.Field
	Err   error
}

// RecordNormalizer applies every field normalizer to a raw record.
// It holds only read-only tables and is safe for concurrent use.
type RecordNormalizer struct {
	rates           RateTable
	synonyms        SynonymTable
	quantityCeiling int
}

// NewRecordNormalizer creates a RecordNormalizer over the given tables.
func NewRecordNormalizer(rates RateTable, synonyms SynonymTable, quantityCeiling int) *RecordNormalizer {
	return &RecordNormalizer{
		rates:           rates,
		synonyms:        synonyms,
		quantityCeiling: quantityCeiling,
	}
}

// Normalize produces the candidate for one raw record. The candidate is always
// returned: a field that fails to parse keeps its raw text in Unparsed and the
// failure is listed in the returned errors.
func (n *RecordNormalizer) Normalize(ctx context.Context, raw domain.RawRecord) (domain.NormalizedRecord, []FieldError) {
	rec := domain.NormalizedRecord{
		TransactionID: strings.TrimSpace(raw.TransactionID),
		CustomerID:    strings.TrimSpace(raw.CustomerID),
		ProductSKU:    strings.ToUpper(strings.TrimSpace(raw.ProductSKU)),
		PaymentMethod: strings.TrimSpace(raw.PaymentMethod),
		Category:      normalizeCategory(raw.Category),
		ShipCountry:   NormalizeCountry(raw.ShipCountry, n.synonyms),
		RowNumber:     raw.RowNumber,
	}
	var errs []FieldError
	fail := func(f domain.Field, rawValue string, err error) {
		if rec.Unparsed == nil {
			rec.Unparsed = make(map[domain.Field]string)
		}
		rec.Unparsed[f] = rawValue
		errs = append(errs, FieldError{Field: f, Err: err})
	}

	if amt, err := NormalizeAmount(raw.Amount, raw.Currency, n.rates); err != nil {
		fail(domain.FieldAmount, raw.Amount, err)
		rec.CurrencyDetected = resolveCurrency(symbolOnly(raw.Amount), raw.Currency)
	} else {
		rec.AmountUSD = decimal.NewNullDecimal(amt.AmountUSD)
		rec.CurrencyDetected = amt.CurrencyDetected
	}

	if d, err := NormalizeDate(raw.OrderDate); err != nil {
		fail(domain.FieldOrderDate, raw.OrderDate, err)
	} else {
		rec.OrderDate = d.Date
		rec.OrderDateAmbiguous = d.Ambiguous
	}

	if e, err := RepairEmail(raw.CustomerEmail, raw.CustomerID); err != nil {
		fail(domain.FieldCustomerEmail, raw.CustomerEmail, err)
	} else {
		rec.CustomerEmail = e.Email
		rec.EmailWasInferred = e.Inferred
		rec.EmailWasRepaired = e.Repaired
	}

	if q, err := ClampQuantity(raw.Quantity, n.quantityCeiling); err != nil {
		fail(domain.FieldQuantity, raw.Quantity, err)
	} else {
		rec.Quantity = q.Quantity
		rec.QuantityWasAdjusted = q.Adjusted
	}

	if len(errs) > 0 {
		log := logger.FromContext(ctx)
		for _, fe := range errs {
			log.Debug().
				Err(fe.Err).
				Str("transaction_id", rec.TransactionID).
				Int("row", rec.RowNumber).
				Str("field", string(fe.Field)).
				Msg("Field left unparsed")
		}
	}

	return rec, errs
}

func normalizeCategory(raw string) string {
	if domain.IsNull(raw) {
		return domain.UncategorizedCategory
	}
	return strings.TrimSpace(raw)
}

func symbolOnly(raw string) string {
	code, _ := stripAmount(raw)
	return code
}
