package normalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *RecordNormalizer {
	return NewRecordNormalizer(testRates(), testSynonyms(), 100)
}

func TestRecordNormalizer_Normalize(t *testing.T) {
	raw := domain.RawRecord{
		TransactionID: " TRX_001 ",
		CustomerID:    "C100",
		CustomerEmail: "John@Gmail",
		ProductSKU:    "sku-9",
		Quantity:      "99999",
		Amount:        "€890.00",
		Currency:      "EUR",
		OrderDate:     "15/03/2024",
		ShipCountry:   "usa",
		PaymentMethod: " card ",
		Category:      "NULL",
		RowNumber:     7,
	}

	rec, errs := newTestNormalizer().Normalize(context.Background(), raw)
	require.Empty(t, errs)

	assert.Equal(t, "TRX_001", rec.TransactionID)
	assert.Equal(t, "C100", rec.CustomerID)
	assert.Equal(t, "john@gmail.com", rec.CustomerEmail)
	assert.True(t, rec.EmailWasRepaired)
	assert.False(t, rec.EmailWasInferred)
	assert.Equal(t, "SKU-9", rec.ProductSKU)
	assert.Equal(t, 1, rec.Quantity)
	assert.True(t, rec.QuantityWasAdjusted)
	require.True(t, rec.AmountUSD.Valid)
	assert.Equal(t, "961.20", rec.AmountUSD.Decimal.StringFixed(2))
	assert.Equal(t, "EUR", rec.CurrencyDetected)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 15}, rec.OrderDate)
	assert.Equal(t, "United States", rec.ShipCountry)
	assert.Equal(t, "card", rec.PaymentMethod)
	assert.Equal(t, domain.UncategorizedCategory, rec.Category)
	assert.Equal(t, 7, rec.RowNumber)
	assert.Empty(t, rec.Unparsed)
}

func TestRecordNormalizer_KeepsRecordOnFieldFailures(t *testing.T) {
	raw := domain.RawRecord{
		TransactionID: "TRX_002",
		CustomerID:    "C1",
		CustomerEmail: "a@b.com",
		Quantity:      "lots",
		Amount:        "twelve dollars",
		Currency:      "gbp",
		OrderDate:     "yesterday",
		ShipCountry:   "UK",
	}

	rec, errs := newTestNormalizer().Normalize(context.Background(), raw)
	require.Len(t, errs, 3)

	assert.Equal(t, "TRX_002", rec.TransactionID)
	assert.False(t, rec.AmountUSD.Valid)
	assert.Equal(t, "GBP", rec.CurrencyDetected)
	assert.False(t, rec.HasOrderDate())
	assert.Equal(t, 0, rec.Quantity)
	assert.Equal(t, "twelve dollars", rec.Unparsed[domain.FieldAmount])
	assert.Equal(t, "yesterday", rec.Unparsed[domain.FieldOrderDate])
	assert.Equal(t, "lots", rec.Unparsed[domain.FieldQuantity])
	assert.True(t, rec.IsUnparsed(domain.FieldQuantity))
	assert.False(t, rec.IsUnparsed(domain.FieldCustomerEmail))

	var kinds []error
	for _, fe := range errs {
		kinds = append(kinds, fe.Err)
	}
	assert.True(t, errors.Is(kinds[0], ErrAmountParse))
	assert.True(t, errors.Is(kinds[1], ErrDateFormat))
	assert.True(t, errors.Is(kinds[2], ErrQuantityParse))
}

func TestRecordNormalizer_InferredEmail(t *testing.T) {
	rec, errs := newTestNormalizer().Normalize(context.Background(), domain.RawRecord{
		TransactionID: "TRX_003",
		CustomerID:    "C55",
		CustomerEmail: "",
		Quantity:      "2",
		Amount:        "10",
		OrderDate:     "2024-01-02",
	})
	require.Empty(t, errs)
	assert.Equal(t, "customer_C55@inferred.com", rec.CustomerEmail)
	assert.True(t, rec.EmailWasInferred)
	assert.Equal(t, "USD", rec.CurrencyDetected)
	assert.Equal(t, domain.UnknownCountry, rec.ShipCountry)
}
