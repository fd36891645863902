package normalizer

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// strictDate pairs a shape check with the layouts accepted for that shape.
type strictDate struct {
	pattern *regexp.Regexp
	layouts []string
}

// Checked in order; a value matching a shape is only accepted when one of its
// layouts yields a real calendar date.
var strictDates = []strictDate{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), []string{"2006-01-02"}},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), []string{"01/02/2006"}},
	{regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), []string{"01-02-2006"}},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`), []string{"1/2/2006", "1/2/06"}},
}

// Best-effort layouts tried when no strict shape produced a date.
var fallbackDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"02/01/2006", // DD/MM/YYYY, reached only when the day is above 12
	"02/01/2006 15:04",
	"01/02/2006 15:04",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
}

// ParseDate parses a statement date. Strict numeric shapes are tried first,
// then a list of common layouts. ok is false when nothing matches.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, sd := range strictDates {
		if !sd.pattern.MatchString(s) {
			continue
		}
		for _, layout := range sd.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

var amountStripper = strings.NewReplacer("£", "", "$", "", "€", "", ",", "")

// ParseAmount parses a statement amount. Currency symbols (£ $ €) and
// thousands separators are removed, and a value wrapped in parentheses is
// negative. ok is false when the remainder is not a number.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(amountStripper.Replace(raw))

	negative := false
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	if negative {
		d = d.Neg()
	}
	return d, true
}
