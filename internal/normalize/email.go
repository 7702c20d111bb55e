package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
)

// InferredEmailDomain is the domain of synthesized addresses.
const InferredEmailDomain = "inferred.com"

// PlaceholderDomain completes an address that ends with a bare '@'.
const PlaceholderDomain = "domain.com"

// knownProviders are completed with ".com" when they appear without an extension.
var knownProviders = []string{"gmail", "yahoo", "hotmail", "outlook"}

var validEmailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// IsValidEmailShape reports whether s looks like local@domain.tld.
func IsValidEmailShape(s string) bool {
	return len(s) >= 5 && validEmailPattern.MatchString(s)
}

// EmailResult is the outcome of RepairEmail.
type EmailResult struct {
	Email    string
	Inferred bool
	Repaired bool
}

// RepairEmail turns a raw, possibly missing or truncated address into a
// valid-shaped one. Rules are applied in order and the first that matches wins.
// It does not check deliverability.
func RepairEmail(raw, customerID string) (EmailResult, error) {
	if domain.IsNull(raw) {
		return inferEmail(customerID)
	}

	email := strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "."))
	repaired := false

	switch at := strings.LastIndex(email, "@"); {
	case at < 0:
		// no rule applies; falls through to the shape check below
	case isBareProvider(email[at+1:]):
		email += ".com"
		repaired = true
	case at == len(email)-1:
		email += PlaceholderDomain
		repaired = true
	case !strings.Contains(email[at+1:], "."):
		email += ".com"
		repaired = true
	}

	if !IsValidEmailShape(email) {
		return inferEmail(customerID)
	}
	return EmailResult{Email: email, Repaired: repaired}, nil
}

func isBareProvider(host string) bool {
	for _, p := range knownProviders {
		if host == p {
			return true
		}
	}
	return false
}

func inferEmail(customerID string) (EmailResult, error) {
	id := strings.TrimSpace(customerID)
	if domain.IsNull(id) {
		id = ""
	}
	email := fmt.Sprintf("customer_%s@%s", id, InferredEmailDomain)
	if !IsValidEmailShape(email) {
		return EmailResult{}, &EmailShapeViolation{Email: email}
	}
	return EmailResult{Email: email, Inferred: true}, nil
}
