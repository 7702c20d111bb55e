package normalize

import (
	"errors"
	"fmt"
)

// Sentinel errors for each field kind, matchable with errors.Is.
var (
	ErrAmountParse   = errors.New("amount parse error")
	ErrDateFormat    = errors.New("date format error")
	ErrQuantityParse = errors.New("quantity parse error")
	ErrEmailShape    = errors.New("email shape violation")
)

// AmountParseError reports an amount that is not a decimal once cleaned.
type AmountParseError struct {
	Raw     string
	Cleaned string
}

func (e *AmountParseError) Error() string {
	return fmt.Sprintf("amount parse error: %q (cleaned %q) is not a decimal", e.Raw, e.Cleaned)
}

func (e *AmountParseError) Unwrap() error { return ErrAmountParse }

// DateFormatError reports a date matching none of the supported shapes.
type DateFormatError struct {
	Raw    string
	Reason string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("date format error: %q: %s", e.Raw, e.Reason)
}

func (e *DateFormatError) Unwrap() error { return ErrDateFormat }

// QuantityParseError reports a quantity that is not numeric.
type QuantityParseError struct {
	Raw string
}

func (e *QuantityParseError) Error() string {
	return fmt.Sprintf("quantity parse error: %q is not numeric", e.Raw)
}

func (e *QuantityParseError) Unwrap() error { return ErrQuantityParse }

// EmailShapeViolation means the repairer could not produce a valid-shaped
// address, not even a synthesized one.
type EmailShapeViolation struct {
	Email string
}

func (e *EmailShapeViolation) Error() string {
	return fmt.Sprintf("email shape violation: %q", e.Email)
}

func (e *EmailShapeViolation) Unwrap() error { return ErrEmailShape }
