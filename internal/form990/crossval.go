package form990

import (
	"fmt"
	"math"
	"strings"
)

// CheckResult is the outcome of one cross-field consistency check. A check
// passes iff it produced no errors; warnings alone do not fail it.
type CheckResult struct {
	Name     string   `json:"name"`
	Ran      bool     `json:"ran"`
	Passed   bool     `json:"passed"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationReport aggregates all checks. ConfidenceAdjustment maps the
// pass rate onto [0.5, 1.0]: a filing failing every check keeps half its
// extraction confidence, one passing all checks keeps it intact.
type ValidationReport struct {
	Checks               []CheckResult `json:"checks"`
	ConfidenceAdjustment float64       `json:"confidence_adjustment"`
}

// Errors collects error messages across checks.
func (r *ValidationReport) Errors() []string {
	var out []string
	for _, c := range r.Checks {
		out = append(out, c.Errors...)
	}
	return out
}

// Warnings collects warning messages across checks.
func (r *ValidationReport) Warnings() []string {
	var out []string
	for _, c := range r.Checks {
		out = append(out, c.Warnings...)
	}
	return out
}

// Summary renders the report for logs and CLI output.
func (r *ValidationReport) Summary() string {
	errs := r.Errors()
	warns := r.Warnings()
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors, %d warnings", len(errs), len(warns))
	for _, e := range errs {
		b.WriteString("\n  error: ")
		b.WriteString(e)
	}
	for _, w := range warns {
		b.WriteString("\n  warning: ")
		b.WriteString(w)
	}
	return b.String()
}

// CrossValidator checks arithmetic relationships between extracted fields.
type CrossValidator struct {
	relTolerancePct float64
	absTolerance    float64
}

// NewCrossValidator builds a validator with the given tolerances: a
// relative percentage for revenue comparisons and an absolute dollar bound
// for sum checks.
func NewCrossValidator(relTolerancePct, absToleranceUSD float64) *CrossValidator {
	return &CrossValidator{relTolerancePct: relTolerancePct, absTolerance: absToleranceUSD}
}

// Validate runs every check against the field set.
func (v *CrossValidator) Validate(fields FieldSet) *ValidationReport {
	report := &ValidationReport{}

	report.Checks = append(report.Checks,
		v.revenueConsistency(fields),
		v.contributionsConsistency(fields),
		v.expenseAllocation(fields),
		v.balanceSheet(fields),
	)

	ran, passed := 0, 0
	for _, c := range report.Checks {
		if !c.Ran {
			continue
		}
		ran++
		if c.Passed {
			passed++
		}
	}
	if ran == 0 {
		report.ConfidenceAdjustment = 0.5
	} else {
		report.ConfidenceAdjustment = 0.5 + 0.5*float64(passed)/float64(ran)
	}
	return report
}

// revenueConsistency compares the page 1 total revenue against Part VIII
// line 12. The two are the same figure printed twice.
func (v *CrossValidator) revenueConsistency(fields FieldSet) CheckResult {
	return v.pairWithinPercent("revenue_consistency",
		fields, FieldTotalRevenue, FieldTotalRevenuePartVIII)
}

// contributionsConsistency compares page 1 line 8 against Part VIII 1h.
func (v *CrossValidator) contributionsConsistency(fields FieldSet) CheckResult {
	return v.pairWithinPercent("contributions_consistency",
		fields, FieldTotalContributions, FieldContributionsTotal)
}

func (v *CrossValidator) pairWithinPercent(name string, fields FieldSet, keyA, keyB string) CheckResult {
	c := CheckResult{Name: name}

	a, okA := fields.Amount(keyA)
	b, okB := fields.Amount(keyB)
	if !okA && !okB {
		return c
	}
	if okA != okB {
		c.Ran = true
		c.Passed = true
		missing := keyA
		if okA {
			missing = keyB
		}
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s: %s missing, comparison skipped", name, missing))
		return c
	}

	c.Ran = true
	avg := (a + b) / 2
	if avg == 0 {
		c.Passed = a == b
		if !c.Passed {
			c.Errors = append(c.Errors, fmt.Sprintf("%s: %s=%.2f vs %s=%.2f", name, keyA, a, keyB, b))
		}
		return c
	}

	diffPct := math.Abs(a-b) / avg * 100
	if diffPct <= v.relTolerancePct {
		c.Passed = true
	} else {
		c.Errors = append(c.Errors,
			fmt.Sprintf("%s: %s=%.2f vs %s=%.2f differ by %.1f%% (tolerance %.1f%%)",
				name, keyA, a, keyB, b, diffPct, v.relTolerancePct))
	}
	return c
}

// expenseAllocation checks Part IX line 25: column (A) must equal the sum
// of columns (B), (C), and (D).
func (v *CrossValidator) expenseAllocation(fields FieldSet) CheckResult {
	c := CheckResult{Name: "expense_allocation"}

	total, okA := fields.Amount(FieldTotalExpensesA)
	b, okB := fields.Amount(FieldTotalExpensesB)
	cc, okC := fields.Amount(FieldTotalExpensesC)
	d, okD := fields.Amount(FieldTotalExpensesD)

	if !okA {
		return c
	}
	if !okB || !okC || !okD {
		c.Warnings = append(c.Warnings, "expense_allocation: column breakdown incomplete, sum check skipped")
		return c
	}

	c.Ran = true
	sum := b + cc + d
	if math.Abs(total-sum) <= v.absTolerance {
		c.Passed = true
	} else {
		c.Errors = append(c.Errors,
			fmt.Sprintf("expense_allocation: column A %.2f != B+C+D %.2f (tolerance $%.0f)",
				total, sum, v.absTolerance))
	}
	return c
}

// balanceSheet checks total assets minus total liabilities against net
// assets or fund balances.
func (v *CrossValidator) balanceSheet(fields FieldSet) CheckResult {
	c := CheckResult{Name: "balance_sheet"}

	assets, okA := fields.Amount(FieldTotalAssets)
	liabilities, okL := fields.Amount(FieldTotalLiabilities)
	net, okN := fields.Amount(FieldNetAssets)

	present := 0
	for _, ok := range []bool{okA, okL, okN} {
		if ok {
			present++
		}
	}
	if present == 0 {
		return c
	}
	if present < 3 {
		c.Ran = true
		c.Passed = true
		c.Warnings = append(c.Warnings, "balance_sheet: not all of assets, liabilities, net assets present, check skipped")
		return c
	}

	c.Ran = true
	if math.Abs((assets-liabilities)-net) <= v.absTolerance {
		c.Passed = true
	} else {
		c.Errors = append(c.Errors,
			fmt.Sprintf("balance_sheet: assets %.2f - liabilities %.2f != net assets %.2f (tolerance $%.0f)",
				assets, liabilities, net, v.absTolerance))
	}
	return c
}
