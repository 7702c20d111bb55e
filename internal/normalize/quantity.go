package normalize

import (
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultQuantity replaces missing and out-of-range quantities.
const DefaultQuantity = 1

// QuantityResult is the outcome of ClampQuantity.
type QuantityResult struct {
	Quantity int
	Adjusted bool
}

// ClampQuantity parses a raw quantity and applies ResetOutOfRangeQuantity.
// Fractional values are rounded to the nearest integer and marked adjusted.
func ClampQuantity(raw string, ceiling int) (QuantityResult, error) {
	if domain.IsNull(raw) {
		return QuantityResult{Quantity: DefaultQuantity, Adjusted: true}, nil
	}

	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return QuantityResult{}, &QuantityParseError{Raw: raw}
	}

	rounded := d.Round(0)
	adjusted := !rounded.Equal(d)
	if rounded.Abs().GreaterThan(decimal.NewFromInt(int64(ceiling))) {
		return ResetOutOfRangeQuantity(ceiling+1, ceiling), nil
	}

	q := ResetOutOfRangeQuantity(int(rounded.IntPart()), ceiling)
	q.Adjusted = q.Adjusted || adjusted
	return q, nil
}

// ResetOutOfRangeQuantity is the quantity policy: values at or below zero and
// values above the ceiling both become 1. Large values are reset, not capped.
func ResetOutOfRangeQuantity(n, ceiling int) QuantityResult {
	if n <= 0 || n > ceiling {
		return QuantityResult{Quantity: DefaultQuantity, Adjusted: true}
	}
	return QuantityResult{Quantity: n}
}
