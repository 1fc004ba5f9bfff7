package form990

import (
	"testing"

	"github.com/a3tai/form990-extract/internal/extract"
	"github.com/a3tai/form990-extract/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryPage = `Form 990
Return of Organization Exempt From Income Tax
OMB No. 1545-0047
Part I Summary
D Employer identification number
54-1234567
G Gross receipts $ 2,406,962
Prior Year Current Year
8 Contributions and grants 1,100,000 1,200,000
12 Total revenue 2,300,000 2,406,962
13 Grants and similar amounts paid 400,000 450,000
20 Total assets 5,000,000 5,500,000
21 Total liabilities 2,000,000 2,100,000
22 Net assets or fund balances 3,000,000 3,400,000
`

const revenuePage = `Part VIII Statement of Revenue
(A) Total revenue (B) Related (C) Unrelated (D) Excluded
1a Federated campaigns 45,000
1b Membership dues 12,500
1f All other contributions, gifts, grants 1,142,500
1h Total. Add lines 1a-1f 1,200,000
2g Total. Add lines 2a-2f 980,000
3 Investment income 115,000
5 Royalties
11e Total. Add lines 11a-11d
12 Total revenue. See instructions 2,406,962
`

const expensePage = `Part IX Statement of Functional Expenses
(A) Total expenses (B) Program service (C) Management (D) Fundraising
1 Grants and other assistance to domestic organizations 450,000
11e Professional fundraising services
21 Payments to affiliates
25 Total functional expenses. Add lines 1 through 24e 2,100,000 1,500,000 400,000 200,000
26 Joint costs
Part X Balance Sheet
`

func testDocument() *Document {
	pages := []string{summaryPage, revenuePage, expensePage}
	a := NewAnalyzer(nil)
	return &Document{
		Pages:    pages,
		Analysis: a.Analyze(pages),
	}
}

func newTestLocator() *Locator {
	return NewLocator(NewAmountRules(4), 3, DefaultSpecs())
}

func TestLocateEIN(t *testing.T) {
	l := newTestLocator()

	fv := l.LocateEIN(testDocument())
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "54-1234567", fv.Value)
	assert.Equal(t, SourceTextPattern, fv.Source)
}

func TestLocateEINSpacedDigits(t *testing.T) {
	l := newTestLocator()
	doc := &Document{Pages: []string{"Employer identification number 5 4 - 1 2 3 4 5 6 7"}}

	fv := l.LocateEIN(doc)
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "54-1234567", fv.Value)
	assert.Equal(t, SourceTextPatternOCR, fv.Source)
	assert.NotEmpty(t, fv.Warnings)
}

func TestLocateEINSpacedPrefixAfterCleaning(t *testing.T) {
	l := newTestLocator()
	// Line cleaning joins the seven-digit serial but not the two-digit
	// prefix.
	doc := &Document{Pages: []string{
		normalize.CleanText("Employer identification number 5 4 - 1 2 3 4 5 6 7"),
	}}

	fv := l.LocateEIN(doc)
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "54-1234567", fv.Value)
	assert.Equal(t, SourceTextPatternOCR, fv.Source)
	assert.NotEmpty(t, fv.Warnings)
}

func TestLocateEINFallbackLine(t *testing.T) {
	l := newTestLocator()
	doc := &Document{Pages: []string{"B Check if applicable: Address change 541234567"}}

	fv := l.LocateEIN(doc)
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "54-1234567", fv.Value)
}

func TestLocateEINMissing(t *testing.T) {
	l := newTestLocator()
	doc := &Document{Pages: []string{"no identifiers here"}}

	fv := l.LocateEIN(doc)
	assert.Equal(t, StateNotFound, fv.State)
	assert.Equal(t, 0.0, fv.Confidence)
}

func TestLocateSummaryFieldsTakeCurrentYear(t *testing.T) {
	l := newTestLocator()
	fields := l.Locate(testDocument())

	tests := []struct {
		field string
		want  string
	}{
		{FieldTotalContributions, "1,200,000"},
		{FieldTotalRevenue, "2,406,962"},
		{FieldGrantsPaid, "450,000"},
		{FieldTotalAssets, "5,500,000"},
		{FieldTotalLiabilities, "2,100,000"},
		{FieldNetAssets, "3,400,000"},
	}
	for _, tt := range tests {
		fv := fields.Get(tt.field)
		require.Equal(t, StateFound, fv.State, tt.field)
		assert.Equal(t, tt.want, fv.Value, tt.field)
	}
}

func TestLocateRevenueFieldsTakeColumnA(t *testing.T) {
	l := newTestLocator()
	fields := l.Locate(testDocument())

	assert.Equal(t, "45,000", fields.Get("federated_campaigns").Value)
	assert.Equal(t, "12,500", fields.Get("membership_dues").Value)
	assert.Equal(t, "1,200,000", fields.Get(FieldContributionsTotal).Value)
	assert.Equal(t, "2,406,962", fields.Get(FieldTotalRevenuePartVIII).Value)
}

func TestLocatePresentButEmptyRows(t *testing.T) {
	l := newTestLocator()
	fields := l.Locate(testDocument())

	for _, name := range []string{
		FieldRoyalties, FieldOtherRevenueTotal,
		FieldProfFundraisingSvcs, FieldAffiliatePayments, FieldJointCosts,
	} {
		fv := fields.Get(name)
		assert.Equal(t, StateFoundEmpty, fv.State, name)
		assert.Empty(t, fv.Warnings, "trusted blank rows carry no warning: %s", name)
	}
}

func TestLocateExpenseColumns(t *testing.T) {
	l := newTestLocator()
	fields := l.Locate(testDocument())

	assert.Equal(t, "2,100,000", fields.Get(FieldTotalExpensesA).Value)
	assert.Equal(t, "1,500,000", fields.Get(FieldTotalExpensesB).Value)
	assert.Equal(t, "400,000", fields.Get(FieldTotalExpensesC).Value)
	assert.Equal(t, "200,000", fields.Get(FieldTotalExpensesD).Value)
}

func TestLocateRejectsYears(t *testing.T) {
	l := newTestLocator()
	doc := &Document{Pages: []string{`Form 990
OMB No. 1545-0047
Part I Summary
12 Total revenue for 2023 1,500,000
`}}
	doc.Analysis = NewAnalyzer(nil).Analyze(doc.Pages)

	fv := l.LocateField(doc, FieldSpec{
		Name: FieldTotalRevenue, Section: SectionSummary, RowCode: "12",
		Label: "Total revenue", Policy: PolicyLast, RejectYears: true,
	})
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "1,500,000", fv.Value)
}

func TestLocateFromNormalizedTable(t *testing.T) {
	l := newTestLocator()

	table := normalize.NormalizeTable([][]string{
		{"", "(A) Total revenue", "(B) Related"},
		{"1a Federated campaigns", "45,000", ""},
		{"1h Total. Add lines 1a-1f", "1,200,000", ""},
	}, 9)
	require.Equal(t, normalize.TablePartVIII, table.Type)

	doc := &Document{
		Pages:  []string{"Part VIII Statement of Revenue"},
		Tables: []*normalize.Table{table},
	}

	fv := l.LocateField(doc, FieldSpec{
		Name: FieldContributionsTotal, Section: SectionRevenue, RowCode: "1h",
		Label: "Total. Add lines 1a-1f",
	})
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, SourceTable, fv.Source)
	assert.Equal(t, "1,200,000", fv.Value)
	assert.Equal(t, 9, fv.Page)
}

func TestLocateFieldNotFound(t *testing.T) {
	l := newTestLocator()
	doc := &Document{Pages: []string{"nothing relevant"}}

	fv := l.LocateField(doc, FieldSpec{
		Name: FieldTotalRevenue, Section: SectionSummary, RowCode: "12", Label: "Total revenue",
	})
	assert.Equal(t, StateNotFound, fv.State)
	assert.Equal(t, SourceNone, fv.Source)
}

func TestSectionTextClipsRegions(t *testing.T) {
	doc := testDocument()

	revenue, page := doc.SectionText(SectionRevenue)
	assert.Contains(t, revenue, "Federated campaigns")
	assert.NotContains(t, revenue, "Grants and other assistance")
	assert.Equal(t, 2, page)

	expenses, _ := doc.SectionText(SectionExpenses)
	assert.Contains(t, expenses, "Total functional expenses")
	assert.NotContains(t, expenses, "Federated campaigns")
}

func specByName(t *testing.T, name string) FieldSpec {
	t.Helper()
	for _, s := range DefaultSpecs() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no spec named %s", name)
	return FieldSpec{}
}

func TestLocateFromWordBaselines(t *testing.T) {
	l := newTestLocator()
	doc := testDocument()
	doc.Words = []extract.Word{
		{Text: "20", X0: 40, Y0: 400, Page: 1},
		{Text: "Total assets", X0: 60, Y0: 400, Page: 1},
		{Text: "5,000,000", X0: 320, Y0: 400, Page: 1},
		{Text: "5,500,000", X0: 440, Y0: 400, Page: 1},
		{Text: "21", X0: 40, Y0: 380, Page: 1},
		{Text: "Total liabilities", X0: 60, Y0: 380, Page: 1},
		{Text: "2,100,000", X0: 440, Y0: 380, Page: 1},
	}

	fv := l.LocateField(doc, specByName(t, FieldTotalAssets))
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "5,500,000", fv.Value)
	assert.Equal(t, SourceCoordinate, fv.Source)
	assert.Equal(t, 1, fv.Page)
	assert.InDelta(t, 0.85, fv.Confidence, 1e-9)
}

func TestLocateWordBaselineEmptyRow(t *testing.T) {
	l := newTestLocator()
	doc := testDocument()
	doc.Words = []extract.Word{
		{Text: "16a", X0: 40, Y0: 300, Page: 1},
		{Text: "Professional fundraising fees", X0: 70, Y0: 300, Page: 1},
	}

	fv := l.LocateField(doc, specByName(t, FieldProfFundraisingFees))
	require.Equal(t, StateFoundEmpty, fv.State)
	assert.Equal(t, SourceCoordinate, fv.Source)
	assert.Empty(t, fv.Warnings)
}

func TestRowCodeBoundary(t *testing.T) {
	l := newTestLocator()

	// Code "3" must not anchor on the "3" inside "13", even when row 13
	// comes first in the same section.
	doc := &Document{Pages: []string{
		"Part VIII Statement of Revenue\n" +
			"13 Grants and similar amounts paid 400,000\n" +
			"3 Investment income 115,000\n",
	}}
	fv := l.LocateField(doc, specByName(t, "investment_income"))
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "115,000", fv.Value)

	fv = l.LocateField(testDocument(), specByName(t, "investment_income"))
	require.Equal(t, StateFound, fv.State)
	assert.Equal(t, "115,000", fv.Value)
	assert.NotEqual(t, "400,000", fv.Value)
}
