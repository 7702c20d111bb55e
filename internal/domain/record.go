package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RawRecord is one untyped input row. Every attribute is carried verbatim;
// an empty string or the literal NULL (any case) stands for a missing value.
type RawRecord struct {
	TransactionID string
	CustomerID    string
	CustomerEmail string // nullable
	ProductSKU    string
	Quantity      string // may be non-numeric
	Amount        string // may carry symbols, separators or parentheses
	Currency      string // nullable
	OrderDate     string // unknown format
	ShipCountry   string
	PaymentMethod string
	Category      string // nullable

	RowNumber int // 1-based position in the batch
}

// IsNull reports whether a raw attribute should be treated as missing.
func IsNull(v string) bool {
	s := strings.TrimSpace(v)
	return s == "" || strings.EqualFold(s, "NULL")
}

// Field names a normalized attribute that can fail to parse.
type Field string

const (
	FieldAmount        Field = "amount"
	FieldOrderDate     Field = "order_date"
	FieldQuantity      Field = "quantity"
	FieldCustomerEmail Field = "customer_email"
)

// RecordStatus is the reconciliation outcome of a candidate.
type RecordStatus string

const (
	StatusCandidate RecordStatus = ""
	StatusKept      RecordStatus = "kept"
	StatusDuplicate RecordStatus = "duplicate"
)

// UncategorizedCategory is used when the raw category is missing.
const UncategorizedCategory = "Uncategorized"

// UnknownCountry is used when the raw ship country is missing.
const UnknownCountry = "Unknown"

// NormalizedRecord is the canonical form of one RawRecord. It is created once
// by the record normalizer and only its Status changes afterwards.
type NormalizedRecord struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	ProductSKU    string `json:"product_sku"`
	PaymentMethod string `json:"payment_method"`
	Category      string `json:"category"`
	ShipCountry   string `json:"ship_country"`

	AmountUSD        decimal.NullDecimal `json:"amount_usd"` // 2 fraction digits; invalid when unparsed
	CurrencyDetected string              `json:"currency_detected"`
	OrderDate        civil.Date          `json:"order_date"` // zero value when unparsed
	Quantity         int                 `json:"quantity"`   // 0 when unparsed

	EmailWasInferred    bool `json:"email_was_inferred"`
	EmailWasRepaired    bool `json:"email_was_repaired"`
	QuantityWasAdjusted bool `json:"quantity_was_adjusted"`
	OrderDateAmbiguous  bool `json:"order_date_ambiguous"`

	// Unparsed holds the raw text of every field whose parse failed.
	Unparsed map[Field]string `json:"unparsed,omitempty"`

	RowNumber int          `json:"row_number"`
	Status    RecordStatus `json:"status"`
}

// IsUnparsed reports whether the given field failed to parse.
func (r *NormalizedRecord) IsUnparsed(f Field) bool {
	_, ok := r.Unparsed[f]
	return ok
}

// HasOrderDate reports whether the record carries a parsed calendar date.
func (r *NormalizedRecord) HasOrderDate() bool {
	return r.OrderDate.IsValid()
}

// CanonicalDataset is the set of kept records. TransactionID is unique across it.
type CanonicalDataset []NormalizedRecord

// DuplicateGroup holds every candidate sharing one transaction id.
type DuplicateGroup struct {
	TransactionID string
	Members       []NormalizedRecord
}

// DuplicateEntry records one discarded candidate and the survivor that superseded it.
type DuplicateEntry struct {
	TransactionID string `json:"transaction_id"`
	DuplicateRow  int    `json:"duplicate_row"`
	SurvivorRow   int    `json:"survivor_row"`
	Reason        string `json:"reason"`
}

// AuditTrail lists every duplicate removed during reconciliation.
type AuditTrail []DuplicateEntry
