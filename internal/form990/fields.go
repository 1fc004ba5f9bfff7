package form990

import (
	"regexp"
	"strings"
)

// FieldState distinguishes a located value from a located-but-blank row and
// from a field the document never yielded.
type FieldState string

const (
	// StateFound means a concrete value was extracted.
	StateFound FieldState = "found"
	// StateFoundEmpty means the row or cell was located but holds no value;
	// on a 990 this is an affirmative blank, not a failure.
	StateFoundEmpty FieldState = "found_empty"
	// StateNotFound means no strategy produced the field.
	StateNotFound FieldState = "not_found"
)

// Source records which extraction strategy produced a field value. Scoring
// trusts sources unevenly.
type Source string

const (
	SourceTable          Source = "table"
	SourceCoordinate     Source = "coordinate"
	SourceTextPattern    Source = "text_pattern"
	SourceTextPatternOCR Source = "text_pattern_ocr_fixed"
	SourceOCR            Source = "ocr"
	SourceNone           Source = "none"
)

// FieldValue is one extracted field with its provenance.
type FieldValue struct {
	Value      string     `json:"value"`
	State      FieldState `json:"state"`
	Source     Source     `json:"source"`
	Confidence float64    `json:"confidence"`
	Page       int        `json:"page,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// NotFound is the canonical absent field: zero confidence, no source.
func NotFound() FieldValue {
	return FieldValue{State: StateNotFound, Source: SourceNone, Confidence: 0}
}

// FoundEmpty marks a row that exists on the form but carries no amount.
func FoundEmpty(src Source, page int) FieldValue {
	return FieldValue{State: StateFoundEmpty, Source: src, Confidence: 0.8, Page: page}
}

// Found builds a populated field value.
func Found(value string, src Source, confidence float64, page int) FieldValue {
	return FieldValue{Value: value, State: StateFound, Source: src, Confidence: confidence, Page: page}
}

// WithWarning returns a copy carrying an extra warning.
func (f FieldValue) WithWarning(w string) FieldValue {
	f.Warnings = append(append([]string(nil), f.Warnings...), w)
	return f
}

// IsPresent reports whether the field was located at all.
func (f FieldValue) IsPresent() bool {
	return f.State != StateNotFound
}

// HasValue reports whether the field carries a usable value.
func (f FieldValue) HasValue() bool {
	return f.State == StateFound && f.Value != ""
}

// FieldSet maps canonical field names to extracted values. Absent keys and
// explicit NotFound entries mean the same thing; readers should use Get.
type FieldSet map[string]FieldValue

// Get returns the field value, or NotFound when the key is absent.
func (fs FieldSet) Get(name string) FieldValue {
	if v, ok := fs[name]; ok {
		return v
	}
	return NotFound()
}

// Amount parses the field as a dollar value. The second return is false for
// absent, empty, or unparseable fields.
func (fs FieldSet) Amount(name string) (float64, bool) {
	f := fs.Get(name)
	if !f.HasValue() {
		return 0, false
	}
	v, err := ParseAmount(f.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Merge overlays other onto fs, keeping the existing entry when the incoming
// one is weaker (lower state, then lower confidence). Returns a new set.
func (fs FieldSet) Merge(other FieldSet) FieldSet {
	out := make(FieldSet, len(fs)+len(other))
	for k, v := range fs {
		out[k] = v
	}
	for k, v := range other {
		cur, ok := out[k]
		if !ok || betterField(v, cur) {
			out[k] = v
		}
	}
	return out
}

func betterField(a, b FieldValue) bool {
	rank := func(s FieldState) int {
		switch s {
		case StateFound:
			return 2
		case StateFoundEmpty:
			return 1
		default:
			return 0
		}
	}
	if rank(a.State) != rank(b.State) {
		return rank(a.State) > rank(b.State)
	}
	return a.Confidence > b.Confidence
}

// Canonical field names shared across the pipeline.
const (
	FieldEIN                 = "employer_identification_number"
	FieldGrossReceipts       = "gross_receipts"
	FieldTotalContributions  = "total_contributions"
	FieldTotalRevenue        = "total_revenue"
	FieldGrantsPaid          = "grants_and_similar_amounts_paid"
	FieldSalaries            = "salaries_compensation_benefits"
	FieldProfFundraisingFees = "professional_fundraising_fees"
	FieldTotalFundraisingExp = "total_fundraising_expenses"
	FieldTotalAssets         = "total_assets"
	FieldTotalLiabilities    = "total_liabilities"
	FieldNetAssets           = "net_assets_or_fund_balances"
	FieldContributionsTotal  = "contributions_total"
	FieldOtherRevenueTotal   = "other_revenue_total"
	FieldProgramServiceTotal = "program_service_revenue_total"
	FieldRoyalties           = "royalties"
	FieldGrantsDomesticOrgs  = "grants_domestic_organizations"
	FieldProfFundraisingSvcs = "professional_fundraising_services"
	FieldAffiliatePayments   = "affiliate_payments"
	FieldTotalExpensesA      = "total_functional_expenses_a"
	FieldTotalExpensesB      = "total_functional_expenses_b"
	FieldTotalExpensesC      = "total_functional_expenses_c"
	FieldTotalExpensesD      = "total_functional_expenses_d"
	FieldJointCosts          = "joint_costs"
)

// CriticalFields are the fields a filing is unusable without.
var CriticalFields = []string{
	FieldEIN,
	FieldGrossReceipts,
	FieldTotalRevenue,
	FieldTotalContributions,
	FieldTotalAssets,
	FieldNetAssets,
	FieldTotalExpensesA,
}

// IsCritical reports whether the named field is on the critical list.
func IsCritical(name string) bool {
	for _, c := range CriticalFields {
		if c == name {
			return true
		}
	}
	return false
}

var (
	einFormatRe     = regexp.MustCompile(`^\d{2}-\d{7}$`)
	einSequentialRe = regexp.MustCompile(`^12-3456789$|^98-7654321$`)
)

// ValidateEIN checks an extracted employer identification number. It returns
// warnings for suspicious but well-formed values and false only for values
// that cannot be an EIN.
func ValidateEIN(ein string) (warnings []string, ok bool) {
	s := strings.TrimSpace(ein)
	if !einFormatRe.MatchString(s) {
		return nil, false
	}
	digits := strings.ReplaceAll(s, "-", "")
	if digits == "000000000" {
		return nil, false
	}
	if einSequentialRe.MatchString(s) {
		warnings = append(warnings, "EIN matches a common test number")
	}
	return warnings, true
}
