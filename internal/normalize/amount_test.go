package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRates() RateTable {
	return RateTable{
		"EUR": decimal.RequireFromString("1.08"),
		"GBP": decimal.RequireFromString("1.26"),
		"JPY": decimal.RequireFromString("0.0067"),
		"CAD": decimal.RequireFromString("0.74"),
		"USD": decimal.NewFromInt(1),
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		currency     string
		wantUSD      string
		wantCurrency string
	}{
		{name: "dollar with thousands separator", amount: "$1,234.56", currency: "NULL", wantUSD: "1234.56", wantCurrency: "USD"},
		{name: "euro symbol with field", amount: "€890.00", currency: "EUR", wantUSD: "961.20", wantCurrency: "EUR"},
		{name: "symbol beats currency field", amount: "£100", currency: "EUR", wantUSD: "126.00", wantCurrency: "GBP"},
		{name: "rounded before conversion", amount: "£0.995", currency: "", wantUSD: "1.26", wantCurrency: "GBP"},
		{name: "currency field lower case", amount: "100", currency: "cad", wantUSD: "74.00", wantCurrency: "CAD"},
		{name: "default to USD", amount: "42.5", currency: "", wantUSD: "42.50", wantCurrency: "USD"},
		{name: "yen", amount: "¥10,000", currency: "", wantUSD: "67.00", wantCurrency: "JPY"},
		{name: "parentheses are negative", amount: "(123.45)", currency: "USD", wantUSD: "-123.45", wantCurrency: "USD"},
		{name: "parentheses around symbol", amount: "($12.00)", currency: "", wantUSD: "-12.00", wantCurrency: "USD"},
		{name: "european decimal comma", amount: "1234,56", currency: "USD", wantUSD: "1234.56", wantCurrency: "USD"},
		{name: "european thousands dot", amount: "1.234,56", currency: "USD", wantUSD: "1234.56", wantCurrency: "USD"},
		{name: "comma thousands without decimals", amount: "1,234", currency: "USD", wantUSD: "1234.00", wantCurrency: "USD"},
		{name: "surrounding whitespace", amount: "  $ 99.99 ", currency: "", wantUSD: "99.99", wantCurrency: "USD"},
		{name: "unknown code passes through", amount: "50.00", currency: "CHF", wantUSD: "50.00", wantCurrency: "CHF"},
		{name: "rounding half away from zero", amount: "0.125", currency: "USD", wantUSD: "0.13", wantCurrency: "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.amount, tt.currency, testRates())
			require.NoError(t, err)
			assert.Equal(t, tt.wantUSD, got.AmountUSD.StringFixed(2))
			assert.Equal(t, tt.wantCurrency, got.CurrencyDetected)
		})
	}
}

func TestNormalizeAmount_ParseErrors(t *testing.T) {
	for _, raw := range []string{"", "abc", "$", "12.3.4x", "--5", "1,2,3,4.5.6"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizeAmount(raw, "USD", testRates())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAmountParse))

			var perr *AmountParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, raw, perr.Raw)
		})
	}
}
