package normalize

import (
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SynonymTable maps an upper-case, trimmed spelling to a canonical country name.
type SynonymTable map[string]string

// NormalizeCountry maps a raw country onto its canonical name. Values missing
// from the table are title-cased and kept; they are not an error.
func NormalizeCountry(raw string, synonyms SynonymTable) string {
	if domain.IsNull(raw) {
		return domain.UnknownCountry
	}
	key := strings.ToUpper(strings.TrimSpace(raw))
	if canonical, ok := synonyms[key]; ok {
		return canonical
	}
	// cases.Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.TrimSpace(raw))
}
