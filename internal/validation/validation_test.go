package validation

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func good(id string) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		TransactionID:    id,
		CustomerID:       "C1",
		CustomerEmail:    "a@b.com",
		AmountUSD:        decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
		CurrencyDetected: "USD",
		OrderDate:        civil.Date{Year: 2024, Month: time.June, Day: 1},
		Quantity:         3,
		ShipCountry:      "United States",
		Status:           domain.StatusKept,
	}
}

func TestValidate_CleanDatasetPasses(t *testing.T) {
	records := domain.CanonicalDataset{good("T1"), good("T2"), good("T3")}

	report := New(config.Default()).Validate(records)

	assert.True(t, report.Passed)
	assert.Equal(t, 3, report.Records)
	require.Len(t, report.Checks, 10)

	wantOrder := []string{
		CheckNotNull, CheckUniqueTransaction, CheckEmailShape, CheckOrderDateWindow,
		CheckAmountRange, CheckQuantityRange, CheckCountryCardinality, CheckCurrencyDetected,
		CheckCompleteness, CheckAmountOutliers,
	}
	for i, c := range report.Checks {
		assert.Equal(t, wantOrder[i], c.Name)
		assert.True(t, c.Passed, c.Name)
		assert.Zero(t, c.Offending, c.Name)
	}
	completeness, _ := report.Check(CheckCompleteness)
	assert.Equal(t, 100.0, completeness.Value)
	assert.Empty(t, report.Failed())
}

func TestValidate_Checks(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *domain.NormalizedRecord)
		check     string
		advisory  bool
		offending int
	}{
		{name: "missing customer id", mutate: func(r *domain.NormalizedRecord) { r.CustomerID = "" }, check: CheckNotNull, offending: 1},
		{name: "missing amount", mutate: func(r *domain.NormalizedRecord) { r.AmountUSD = decimal.NullDecimal{} }, check: CheckNotNull, offending: 1},
		{name: "bad email", mutate: func(r *domain.NormalizedRecord) { r.CustomerEmail = "nobody" }, check: CheckEmailShape, offending: 1},
		{name: "date before window", mutate: func(r *domain.NormalizedRecord) { r.OrderDate = civil.Date{Year: 2019, Month: time.December, Day: 31} }, check: CheckOrderDateWindow, offending: 1},
		{name: "missing date", mutate: func(r *domain.NormalizedRecord) { r.OrderDate = civil.Date{} }, check: CheckOrderDateWindow, offending: 1},
		{name: "negative amount", mutate: func(r *domain.NormalizedRecord) {
			r.AmountUSD = decimal.NewNullDecimal(decimal.RequireFromString("-5"))
		}, check: CheckAmountRange, offending: 1},
		{name: "amount over ceiling", mutate: func(r *domain.NormalizedRecord) {
			r.AmountUSD = decimal.NewNullDecimal(decimal.RequireFromString("100000.01"))
		}, check: CheckAmountRange, offending: 1},
		{name: "unparsed quantity", mutate: func(r *domain.NormalizedRecord) { r.Quantity = 0 }, check: CheckQuantityRange, offending: 1},
		{name: "missing currency", mutate: func(r *domain.NormalizedRecord) { r.CurrencyDetected = "" }, check: CheckCurrencyDetected, advisory: true, offending: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := good("T2")
			tt.mutate(&bad)
			report := New(config.Default()).Validate(domain.CanonicalDataset{good("T1"), bad})

			c, ok := report.Check(tt.check)
			require.True(t, ok)
			assert.False(t, c.Passed)
			assert.Equal(t, tt.offending, c.Offending)
			assert.Equal(t, tt.advisory, c.Advisory)
			assert.Equal(t, tt.advisory, report.Passed, "advisory failures must not fail the report")
		})
	}
}

func TestValidate_AmountCeilingIsInclusive(t *testing.T) {
	r := good("T1")
	r.AmountUSD = decimal.NewNullDecimal(decimal.RequireFromString("100000.00"))

	c, _ := New(config.Default()).Validate(domain.CanonicalDataset{r}).Check(CheckAmountRange)
	assert.True(t, c.Passed)
}

func TestValidate_DuplicateTransactionIDs(t *testing.T) {
	report := New(config.Default()).Validate(domain.CanonicalDataset{good("T1"), good("T1"), good("T2")})

	c, _ := report.Check(CheckUniqueTransaction)
	assert.False(t, c.Passed)
	assert.Equal(t, 2, c.Offending)
	assert.False(t, report.Passed)
}

func TestValidate_CountryCardinalityIsAdvisory(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDistinctCountries = 1

	a, b := good("T1"), good("T2")
	b.ShipCountry = "Canada"
	report := New(cfg).Validate(domain.CanonicalDataset{a, b})

	c, _ := report.Check(CheckCountryCardinality)
	assert.False(t, c.Passed)
	assert.True(t, c.Advisory)
	assert.Equal(t, 2.0, c.Value)
	assert.True(t, report.Passed)
}

func TestValidate_Completeness(t *testing.T) {
	records := domain.CanonicalDataset{}
	for i := 0; i < 3; i++ {
		records = append(records, good(string(rune('A'+i))))
	}
	partial := good("D")
	partial.Unparsed = map[domain.Field]string{domain.FieldQuantity: "lots"}
	records = append(records, partial)

	c, _ := New(config.Default()).Validate(records).Check(CheckCompleteness)
	assert.Equal(t, 75.0, c.Value)
	assert.Equal(t, 1, c.Offending)
	assert.False(t, c.Passed)
}

func TestValidate_OutliersAreInformational(t *testing.T) {
	var records domain.CanonicalDataset
	for i := 0; i < 20; i++ {
		records = append(records, good(string(rune('a'+i))))
	}
	spike := good("spike")
	spike.AmountUSD = decimal.NewNullDecimal(decimal.RequireFromString("10000"))
	records = append(records, spike)

	report := New(config.Default()).Validate(records)
	c, _ := report.Check(CheckAmountOutliers)
	assert.True(t, c.Passed)
	assert.Equal(t, 1, c.Offending)
	assert.Len(t, records, 21, "outliers must not be removed")
}

func TestValidate_EmptyDataset(t *testing.T) {
	report := New(config.Default()).Validate(nil)
	assert.True(t, report.Passed)
	assert.Equal(t, 0, report.Records)
}

func TestOutlierCount(t *testing.T) {
	assert.Equal(t, 0, outlierCount(nil, 3))
	assert.Equal(t, 0, outlierCount([]float64{5, 5, 5}, 3))
	assert.Equal(t, 0, outlierCount([]float64{1, 2, 3, 4, 5}, 3))
}
