// Package validation runs the quality battery over a canonical dataset.
// It only reports; records are never changed or removed here.
package validation

import (
	"math"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/normalize"
	"github.com/shopspring/decimal"
)

// Check names, in the order they run.
const (
	CheckNotNull            = "not_null"
	CheckUniqueTransaction  = "unique_transaction_id"
	CheckEmailShape         = "email_shape"
	CheckOrderDateWindow    = "order_date_window"
	CheckAmountRange        = "amount_range"
	CheckQuantityRange      = "quantity_range"
	CheckCountryCardinality = "country_cardinality"
	CheckCurrencyDetected   = "currency_detected"
	CheckCompleteness       = "completeness_pct"
	CheckAmountOutliers     = "amount_outliers"
)

// outlierSigmas is the distance from the mean, in standard deviations, past
// which an amount is reported as an outlier.
const outlierSigmas = 3.0

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Offending int     `json:"offending"`
	Advisory  bool    `json:"advisory"`
	Value     float64 `json:"value,omitempty"`
}

// Report is the ordered list of check results for one dataset.
type Report struct {
	Records int           `json:"records"`
	Passed  bool          `json:"passed"`
	Checks  []CheckResult `json:"checks"`
}

// Check returns the named result and whether it exists.
func (r Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Failed returns the non-advisory checks that did not pass.
func (r Report) Failed() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Passed && !c.Advisory {
			out = append(out, c)
		}
	}
	return out
}

// Validator holds the thresholds the checks compare against.
type Validator struct {
	minDate              civil.Date
	maxDate              civil.Date
	amountCeiling        decimal.Decimal
	quantityCeiling      int
	maxDistinctCountries int
	minCompletenessPct   float64
}

// New creates a Validator from the run configuration.
func New(cfg *config.Config) *Validator {
	minDate, maxDate := cfg.ValidDateWindow()
	return &Validator{
		minDate:              minDate,
		maxDate:              maxDate,
		amountCeiling:        cfg.AmountCeilingDecimal(),
		quantityCeiling:      cfg.QuantityCeiling,
		maxDistinctCountries: cfg.MaxDistinctCountries,
		minCompletenessPct:   cfg.MinCompletenessPct,
	}
}

// Validate runs every check against records. Checks are independent of each
// other; their order in the report is fixed.
func (v *Validator) Validate(records domain.CanonicalDataset) Report {
	checks := []CheckResult{
		v.notNull(records),
		v.uniqueTransactionID(records),
		v.emailShape(records),
		v.orderDateWindow(records),
		v.amountRange(records),
		v.quantityRange(records),
		v.countryCardinality(records),
		v.currencyDetected(records),
		v.completeness(records),
		v.amountOutliers(records),
	}

	passed := true
	for _, c := range checks {
		if !c.Passed && !c.Advisory {
			passed = false
		}
	}
	return Report{Records: len(records), Passed: passed, Checks: checks}
}

func countWhere(records domain.CanonicalDataset, bad func(*domain.NormalizedRecord) bool) int {
	n := 0
	for i := range records {
		if bad(&records[i]) {
			n++
		}
	}
	return n
}

func hard(name string, offending int) CheckResult {
	return CheckResult{Name: name, Passed: offending == 0, Offending: offending}
}

func hasNullCore(r *domain.NormalizedRecord) bool {
	return domain.IsNull(r.TransactionID) ||
		domain.IsNull(r.CustomerID) ||
		r.CustomerEmail == "" ||
		!r.HasOrderDate() ||
		!r.AmountUSD.Valid
}

func (v *Validator) notNull(records domain.CanonicalDataset) CheckResult {
	return hard(CheckNotNull, countWhere(records, hasNullCore))
}

func (v *Validator) uniqueTransactionID(records domain.CanonicalDataset) CheckResult {
	seen := make(map[string]int, len(records))
	for _, r := range records {
		seen[r.TransactionID]++
	}
	offending := 0
	for _, n := range seen {
		if n > 1 {
			offending += n
		}
	}
	return hard(CheckUniqueTransaction, offending)
}

func (v *Validator) emailShape(records domain.CanonicalDataset) CheckResult {
	return hard(CheckEmailShape, countWhere(records, func(r *domain.NormalizedRecord) bool {
		return !normalize.IsValidEmailShape(r.CustomerEmail)
	}))
}

func (v *Validator) orderDateWindow(records domain.CanonicalDataset) CheckResult {
	return hard(CheckOrderDateWindow, countWhere(records, func(r *domain.NormalizedRecord) bool {
		if !r.HasOrderDate() {
			return true
		}
		return r.OrderDate.Before(v.minDate) || r.OrderDate.After(v.maxDate)
	}))
}

func (v *Validator) amountRange(records domain.CanonicalDataset) CheckResult {
	return hard(CheckAmountRange, countWhere(records, func(r *domain.NormalizedRecord) bool {
		if !r.AmountUSD.Valid {
			return true
		}
		a := r.AmountUSD.Decimal
		return !a.IsPositive() || a.GreaterThan(v.amountCeiling)
	}))
}

func (v *Validator) quantityRange(records domain.CanonicalDataset) CheckResult {
	return hard(CheckQuantityRange, countWhere(records, func(r *domain.NormalizedRecord) bool {
		return r.Quantity <= 0 || r.Quantity > v.quantityCeiling
	}))
}

func (v *Validator) countryCardinality(records domain.CanonicalDataset) CheckResult {
	distinct := make(map[string]struct{})
	for _, r := range records {
		distinct[r.ShipCountry] = struct{}{}
	}
	over := len(distinct) - v.maxDistinctCountries
	if over < 0 {
		over = 0
	}
	return CheckResult{
		Name:      CheckCountryCardinality,
		Passed:    over == 0,
		Offending: over,
		Advisory:  true,
		Value:     float64(len(distinct)),
	}
}

func (v *Validator) currencyDetected(records domain.CanonicalDataset) CheckResult {
	c := hard(CheckCurrencyDetected, countWhere(records, func(r *domain.NormalizedRecord) bool {
		return r.CurrencyDetected == ""
	}))
	c.Advisory = true
	return c
}

// completeness is the share of records with every core field present and no
// field left unparsed.
func (v *Validator) completeness(records domain.CanonicalDataset) CheckResult {
	incomplete := countWhere(records, func(r *domain.NormalizedRecord) bool {
		return hasNullCore(r) || len(r.Unparsed) > 0 || r.CurrencyDetected == ""
	})
	pct := 100.0
	if len(records) > 0 {
		pct = math.Round(float64(len(records)-incomplete)/float64(len(records))*10000) / 100
	}
	return CheckResult{
		Name:      CheckCompleteness,
		Passed:    pct >= v.minCompletenessPct,
		Offending: incomplete,
		Advisory:  true,
		Value:     pct,
	}
}

// amountOutliers counts amounts further than three population standard
// deviations from the mean. It is informational and always passes.
func (v *Validator) amountOutliers(records domain.CanonicalDataset) CheckResult {
	var values []float64
	for _, r := range records {
		if r.AmountUSD.Valid {
			values = append(values, r.AmountUSD.Decimal.InexactFloat64())
		}
	}
	n := outlierCount(values, outlierSigmas)
	return CheckResult{
		Name:      CheckAmountOutliers,
		Passed:    true,
		Offending: n,
		Advisory:  true,
		Value:     float64(n),
	}
}

func outlierCount(values []float64, sigmas float64) int {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, x := range values {
		sum += x
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, x := range values {
		sq += (x - mean) * (x - mean)
	}
	std := math.Sqrt(sq / float64(len(values)))
	if std == 0 {
		return 0
	}
	n := 0
	for _, x := range values {
		if math.Abs(x-mean) > sigmas*std {
			n++
		}
	}
	return n
}
