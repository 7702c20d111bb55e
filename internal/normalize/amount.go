package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when neither a symbol nor a currency field is present.
const DefaultCurrency = "USD"

// RateTable maps an upper-case currency code to its USD multiplier.
type RateTable map[string]decimal.Decimal

var currencySymbols = map[rune]string{
	'$': "USD",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
}

var (
	decimalCommaPattern = regexp.MustCompile(`^-?\d+,\d{1,2}$`)
	plainNumberPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// AmountResult is the outcome of NormalizeAmount.
type AmountResult struct {
	AmountUSD        decimal.Decimal
	CurrencyDetected string
	Original         decimal.Decimal
}

// NormalizeAmount parses a raw amount and converts it to USD.
//
// The currency is taken from a currency symbol in the amount, then from the
// currency field, then defaults to USD. Codes missing from rates are passed
// through unconverted. The amount is rounded to two places before conversion
// and the converted value is rounded again.
func NormalizeAmount(raw, currency string, rates RateTable) (AmountResult, error) {
	symbolCode, cleaned := stripAmount(raw)

	if !plainNumberPattern.MatchString(cleaned) {
		return AmountResult{}, &AmountParseError{Raw: raw, Cleaned: cleaned}
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return AmountResult{}, &AmountParseError{Raw: raw, Cleaned: cleaned}
	}

	value = value.Round(2)
	code := resolveCurrency(symbolCode, currency)
	usd := value
	if rate, ok := rates[code]; ok {
		usd = value.Mul(rate)
	}

	return AmountResult{
		AmountUSD:        usd.Round(2),
		CurrencyDetected: code,
		Original:         value,
	}, nil
}

func resolveCurrency(symbolCode, field string) string {
	if symbolCode != "" {
		return symbolCode
	}
	if f := strings.ToUpper(strings.TrimSpace(field)); f != "" && f != "NULL" {
		return f
	}
	return DefaultCurrency
}

// stripAmount removes symbols, whitespace, parentheses and separators and
// returns the first recognised symbol's currency code with a plain
// dot-decimal number string.
func stripAmount(raw string) (string, string) {
	s := strings.TrimSpace(raw)
	symbolCode := ""
	var b strings.Builder
	for _, r := range s {
		if code, ok := currencySymbols[r]; ok {
			if symbolCode == "" {
				symbolCode = code
			}
			continue
		}
		switch r {
		case ' ', '\t', '\u00a0':
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	s = normalizeSeparators(s)
	if negative {
		s = "-" + s
	}
	return symbolCode, s
}

// normalizeSeparators rewrites thousands and decimal separators into a
// plain dot-decimal form.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if decimalCommaPattern.MatchString(s) {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}
