package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout names the structural shape a raw date was classified as.
type DateLayout string

const (
	LayoutISODash  DateLayout = "YYYY-MM-DD"
	LayoutISOSlash DateLayout = "YYYY/MM/DD"
	LayoutUSSlash  DateLayout = "MM/DD/YYYY"
	LayoutDaySlash DateLayout = "DD/MM/YYYY"
	LayoutDayDash  DateLayout = "DD-MM-YYYY"
)

var (
	isoDashPattern    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	isoSlashPattern   = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	slashYearPattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashYearPattern   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	timeSuffixPattern = regexp.MustCompile(`^(\S+)(?:[T ]\d{1,2}:\d{2}.*)$`)
)

// DateResult is the outcome of NormalizeDate.
type DateResult struct {
	Date   civil.Date
	Layout DateLayout
	// Ambiguous is set when the slash form could be read either way and the
	// month-first default was applied.
	Ambiguous bool
}

// NormalizeDate classifies a raw date into one of the supported shapes by
// separator and digit-group pattern only, then builds the calendar date.
func NormalizeDate(raw string) (DateResult, error) {
	s := strings.TrimSpace(raw)
	if m := timeSuffixPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if m := isoDashPattern.FindStringSubmatch(s); m != nil {
		return buildDate(raw, LayoutISODash, m[1], m[2], m[3], false)
	}
	if m := isoSlashPattern.FindStringSubmatch(s); m != nil {
		return buildDate(raw, LayoutISOSlash, m[1], m[2], m[3], false)
	}
	if m := slashYearPattern.FindStringSubmatch(s); m != nil {
		layout, ambiguous := SlashDayFirstWhenLeadExceeds12(atoi(m[1]), atoi(m[2]))
		if layout == LayoutDaySlash {
			return buildDate(raw, layout, m[3], m[2], m[1], false)
		}
		return buildDate(raw, layout, m[3], m[1], m[2], ambiguous)
	}
	if m := dashYearPattern.FindStringSubmatch(s); m != nil {
		return buildDate(raw, LayoutDayDash, m[3], m[2], m[1], false)
	}

	return DateResult{}, &DateFormatError{Raw: raw, Reason: "matches no supported layout"}
}

// SlashDayFirstWhenLeadExceeds12 resolves the NN/NN/YYYY ambiguity. A leading
// group above 12 cannot be a month, so the date is read day-first; otherwise
// the US month-first convention applies. This is a best-effort heuristic:
// 03/04/2024 is read as March 4 and reported ambiguous.
func SlashDayFirstWhenLeadExceeds12(lead, second int) (DateLayout, bool) {
	if lead > 12 {
		return LayoutDaySlash, false
	}
	return LayoutUSSlash, second <= 12 && second != lead
}

func buildDate(raw string, layout DateLayout, y, m, d string, ambiguous bool) (DateResult, error) {
	date := civil.Date{Year: atoi(y), Month: time.Month(atoi(m)), Day: atoi(d)}
	if !date.IsValid() {
		return DateResult{}, &DateFormatError{Raw: raw, Reason: "not a calendar date as " + string(layout)}
	}
	return DateResult{Date: date, Layout: layout, Ambiguous: ambiguous}, nil
}

// atoi is only called on regexp digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
