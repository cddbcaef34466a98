package normalizer

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ExternalReferencePrefix is the payment-rail prefix every valid reference
// number starts with.
const ExternalReferencePrefix = "9225"

// ExternalReferenceLength is the exact length of a valid reference number.
const ExternalReferenceLength = 18

// MalformedKeyError reports an input that cannot be canonicalized. The raw
// input is preserved so callers can surface the offending row.
type MalformedKeyError struct {
	Kind string
	Raw  string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed %s: %q", e.Kind, e.Raw)
}

// NormalizeReference strips whitespace and separator characters and
// upper-cases the remainder. It never fails: an empty result simply means
// the raw value carried no key material.
func NormalizeReference(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// IsValidExternalReference reports whether s is a well-formed payment-rail
// reference: fixed prefix, exact length, digits only.
func IsValidExternalReference(s string) bool {
	if len(s) != ExternalReferenceLength {
		return false
	}
	if !strings.HasPrefix(s, ExternalReferencePrefix) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CanonicalDate is a calendar date with no time-of-day or zone. All key
// comparisons in the matching and scanning paths happen on this form, so a
// source timestamp's clock portion can never cause a false negative.
type CanonicalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime truncates t to its calendar date, discarding clock and zone.
func FromTime(t time.Time) CanonicalDate {
	y, m, d := t.Date()
	return CanonicalDate{Year: y, Month: m, Day: d}
}

func (d CanonicalDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the ISO form YYYY-MM-DD.
func (d CanonicalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Ledger renders the YYYY/MM/DD form the external ledger system expects.
func (d CanonicalDate) Ledger() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, int(d.Month), d.Day)
}

// dateLayouts are tried in order. Slash-day-first is deliberately absent:
// the upstream systems emit either ISO or month/day/year, and accepting both
// slash orders would silently misread ambiguous dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a source date representation into its canonical form.
// Unparseable input returns a *MalformedKeyError; callers decide whether to
// skip or surface the row. There is no default-date fallback.
func ParseDate(raw string) (CanonicalDate, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CanonicalDate{}, &MalformedKeyError{Kind: "date", Raw: raw}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return CanonicalDate{}, &MalformedKeyError{Kind: "date", Raw: raw}
}
