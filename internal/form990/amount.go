// Package form990 implements the domain core of the extraction pipeline:
// the field catalog, document analysis, field location, cross-field
// validation, and confidence scoring for IRS Form 990 filings.
package form990

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxReasonableAmount flags values above a trillion dollars as suspect.
const maxReasonableAmount = 999_999_999_999

// AmountRules validates and finds dollar amount candidates in text. Line
// numbers, row codes, and tax years all look like amounts to a naive regex,
// so candidates must clear a minimum digit count before they are accepted.
type AmountRules struct {
	minDigits int
	pattern   *regexp.Regexp
}

// NewAmountRules builds the shared amount validator. minDigits is the
// smallest digit count a nonzero amount may have.
func NewAmountRules(minDigits int) *AmountRules {
	if minDigits < 1 {
		minDigits = 1
	}
	return &AmountRules{
		minDigits: minDigits,
		pattern:   regexp.MustCompile(fmt.Sprintf(`([\d,]{%d,}(?:\.\d{2})?|\b0(?:\.00)?\b)`, minDigits)),
	}
}

// Valid reports whether the candidate string is a plausible dollar amount.
// Explicit zero is always valid; anything else must be all digits after
// separator stripping, carry at least minDigits digits, and be at least 100.
func (r *AmountRules) Valid(candidate string) bool {
	s := strings.TrimSpace(candidate)
	if s == "" {
		return false
	}
	if s == "0" || s == "0.00" {
		return true
	}

	cleaned := strings.NewReplacer(",", "", ".", "").Replace(s)
	if cleaned == "" {
		return false
	}
	for _, c := range cleaned {
		if c < '0' || c > '9' {
			return false
		}
	}
	if len(cleaned) < r.minDigits {
		return false
	}

	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return false
	}
	return n >= 100
}

// FindAll returns every valid amount candidate in the text, in order.
func (r *AmountRules) FindAll(text string) []string {
	var out []string
	for _, m := range r.pattern.FindAllString(text, -1) {
		if r.Valid(m) {
			out = append(out, m)
		}
	}
	return out
}

// FindFirst returns the first valid amount in the text.
func (r *AmountRules) FindFirst(text string) (string, bool) {
	for _, m := range r.pattern.FindAllString(text, -1) {
		if r.Valid(m) {
			return m, true
		}
	}
	return "", false
}

// FindLast returns the last valid amount in the text.
func (r *AmountRules) FindLast(text string) (string, bool) {
	all := r.FindAll(text)
	if len(all) == 0 {
		return "", false
	}
	return all[len(all)-1], true
}

// FindLargest returns the comma-grouped candidate with the greatest value.
// Used for total rows where OCR scatters fragments around the real figure;
// only candidates containing a thousands separator compete.
func (r *AmountRules) FindLargest(text string) (string, bool) {
	best := ""
	var bestVal float64
	for _, m := range r.FindAll(text) {
		if !strings.Contains(m, ",") {
			continue
		}
		v, err := ParseAmount(m)
		if err != nil {
			continue
		}
		if best == "" || v > bestVal {
			best, bestVal = m, v
		}
	}
	return best, best != ""
}

// LooksLikeYear reports whether the candidate is a bare 4-digit year
// (19xx or 20xx), which must never be accepted as a dollar amount.
func LooksLikeYear(candidate string) bool {
	s := strings.TrimSpace(candidate)
	if len(s) != 4 {
		return false
	}
	if !strings.HasPrefix(s, "19") && !strings.HasPrefix(s, "20") {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseAmount converts a validated amount string into a float64 dollar value.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// AmountInRange reports whether a parsed dollar value sits inside the
// plausible range for a 990 filing.
func AmountInRange(v float64) bool {
	return v >= 0 && v <= maxReasonableAmount
}
