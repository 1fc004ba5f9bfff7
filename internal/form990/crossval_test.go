package form990

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsWith(values map[string]string) FieldSet {
	fs := FieldSet{}
	for k, v := range values {
		fs[k] = Found(v, SourceTextPattern, 0.9, 1)
	}
	return fs
}

func checkByName(t *testing.T, report *ValidationReport, name string) CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found in report", name)
	return CheckResult{}
}

func TestRevenueConsistencyWithinTolerance(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	fields := fieldsWith(map[string]string{
		FieldTotalRevenue:         "1,000,000",
		FieldTotalRevenuePartVIII: "1,010,000",
	})
	c := checkByName(t, v.Validate(fields), "revenue_consistency")
	assert.True(t, c.Ran)
	assert.True(t, c.Passed, "1%% difference is inside the 2%% tolerance")
}

func TestRevenueConsistencyBeyondTolerance(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	fields := fieldsWith(map[string]string{
		FieldTotalRevenue:         "1,000,000",
		FieldTotalRevenuePartVIII: "1,100,000",
	})
	c := checkByName(t, v.Validate(fields), "revenue_consistency")
	assert.True(t, c.Ran)
	assert.False(t, c.Passed)
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors[0], "revenue_consistency")
}

func TestRevenueConsistencyOneSided(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	fields := fieldsWith(map[string]string{FieldTotalRevenue: "1,000,000"})
	c := checkByName(t, v.Validate(fields), "revenue_consistency")
	assert.True(t, c.Ran)
	assert.True(t, c.Passed, "one-sided presence warns but does not fail")
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], FieldTotalRevenuePartVIII)
}

func TestRevenueConsistencyNotRunWhenBothMissing(t *testing.T) {
	v := NewCrossValidator(2.0, 10)
	c := checkByName(t, v.Validate(FieldSet{}), "revenue_consistency")
	assert.False(t, c.Ran)
}

func TestExpenseAllocation(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	exact := fieldsWith(map[string]string{
		FieldTotalExpensesA: "900,000",
		FieldTotalExpensesB: "600,000",
		FieldTotalExpensesC: "200,000",
		FieldTotalExpensesD: "100,000",
	})
	c := checkByName(t, v.Validate(exact), "expense_allocation")
	assert.True(t, c.Passed)

	within := fieldsWith(map[string]string{
		FieldTotalExpensesA: "900,009",
		FieldTotalExpensesB: "600,000",
		FieldTotalExpensesC: "200,000",
		FieldTotalExpensesD: "100,000",
	})
	c = checkByName(t, v.Validate(within), "expense_allocation")
	assert.True(t, c.Passed, "$9 is inside the $10 tolerance")

	broken := fieldsWith(map[string]string{
		FieldTotalExpensesA: "950,000",
		FieldTotalExpensesB: "600,000",
		FieldTotalExpensesC: "200,000",
		FieldTotalExpensesD: "100,000",
	})
	c = checkByName(t, v.Validate(broken), "expense_allocation")
	assert.False(t, c.Passed)

	// Column (A) alone gives the check nothing to verify. It warns but
	// must not count toward the confidence adjustment.
	partial := fieldsWith(map[string]string{
		FieldTotalExpensesA: "900,000",
	})
	c = checkByName(t, v.Validate(partial), "expense_allocation")
	assert.False(t, c.Ran)
	assert.False(t, c.Passed)
	assert.NotEmpty(t, c.Warnings)
}

func TestBalanceSheet(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	ok := fieldsWith(map[string]string{
		FieldTotalAssets:      "5,000,000",
		FieldTotalLiabilities: "2,000,000",
		FieldNetAssets:        "3,000,000",
	})
	c := checkByName(t, v.Validate(ok), "balance_sheet")
	assert.True(t, c.Passed)

	broken := fieldsWith(map[string]string{
		FieldTotalAssets:      "5,000,000",
		FieldTotalLiabilities: "2,000,000",
		FieldNetAssets:        "2,500,000",
	})
	c = checkByName(t, v.Validate(broken), "balance_sheet")
	assert.False(t, c.Passed)

	partial := fieldsWith(map[string]string{FieldTotalAssets: "5,000,000"})
	c = checkByName(t, v.Validate(partial), "balance_sheet")
	assert.True(t, c.Passed)
	assert.NotEmpty(t, c.Warnings)
}

func TestConfidenceAdjustment(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	// Nothing to check: neutral midpoint.
	report := v.Validate(FieldSet{})
	assert.Equal(t, 0.5, report.ConfidenceAdjustment)

	// All run checks pass: full confidence retained.
	allGood := fieldsWith(map[string]string{
		FieldTotalRevenue:         "1,000,000",
		FieldTotalRevenuePartVIII: "1,000,000",
		FieldTotalAssets:          "5,000,000",
		FieldTotalLiabilities:     "2,000,000",
		FieldNetAssets:            "3,000,000",
	})
	report = v.Validate(allGood)
	assert.Equal(t, 1.0, report.ConfidenceAdjustment)

	// One of two run checks fails: midpoint of the upper half.
	half := fieldsWith(map[string]string{
		FieldTotalRevenue:         "1,000,000",
		FieldTotalRevenuePartVIII: "2,000,000",
		FieldTotalAssets:          "5,000,000",
		FieldTotalLiabilities:     "2,000,000",
		FieldNetAssets:            "3,000,000",
	})
	report = v.Validate(half)
	assert.Equal(t, 0.75, report.ConfidenceAdjustment)
}

func TestReportSummary(t *testing.T) {
	v := NewCrossValidator(2.0, 10)

	report := v.Validate(fieldsWith(map[string]string{
		FieldTotalRevenue:         "1,000,000",
		FieldTotalRevenuePartVIII: "2,000,000",
	}))
	summary := report.Summary()
	assert.Contains(t, summary, "1 errors")
	assert.Contains(t, summary, "revenue_consistency")
}
