package form990

// ValuePolicy selects which amount candidate on a row wins.
type ValuePolicy int

const (
	// PolicyFirst takes the first valid amount; Part VIII and IX rows list
	// column (A) first.
	PolicyFirst ValuePolicy = iota
	// PolicyLast takes the last valid amount; page 1 summary rows list the
	// prior year before the current year.
	PolicyLast
	// PolicyLargest takes the largest comma-grouped amount; used on total
	// rows where OCR scatters fragments around the real figure.
	PolicyLargest
)

// FieldTotalRevenuePartVIII is Part VIII line 12, kept separate from the
// page 1 total so cross-validation can compare the two.
const FieldTotalRevenuePartVIII = "total_revenue_part_viii"

// FieldSpec declares how one field is located. The locator interprets specs
// in a fixed fallback order: table row, row-code text patterns in both
// label orders, lookahead lines, then label-only match.
type FieldSpec struct {
	Name    string
	Section string

	// RowCode is the form line code, e.g. "1a" or "25". Empty for fields
	// without a line code.
	RowCode string

	// Label is the row caption; alternates cover wording drift across
	// form years.
	Label     string
	AltLabels []string

	Policy ValuePolicy

	// AmountIndex, when 1 or greater, picks the nth valid amount on the
	// row (0-based) for multi-column rows and overrides Policy.
	AmountIndex int

	// RejectYears drops bare 4-digit year candidates before selection.
	RejectYears bool

	// AllowEmpty marks rows commonly left blank on real filings; locating
	// the row without an amount is an affirmative empty, not a miss.
	AllowEmpty bool
}

// DefaultSpecs is the complete field catalog: the page 1 summary, the
// Part VIII revenue statement, and the Part IX functional expense statement.
func DefaultSpecs() []FieldSpec {
	// Page 1 summary. Amounts appear as "Prior Year  Current Year" pairs;
	// the current year is always the last amount on the row.
	specs := []FieldSpec{
		{Name: FieldGrossReceipts, Section: SectionSummary, RowCode: "G", Label: "Gross receipts", Policy: PolicyLast, RejectYears: true},
		{Name: FieldTotalContributions, Section: SectionSummary, RowCode: "8", Label: "Contributions and grants", Policy: PolicyLast, RejectYears: true},
		{Name: FieldTotalRevenue, Section: SectionSummary, RowCode: "12", Label: "Total revenue", AltLabels: []string{"Total revenue - add lines"}, Policy: PolicyLast, RejectYears: true},
		{Name: FieldGrantsPaid, Section: SectionSummary, RowCode: "13", Label: "Grants and similar amounts paid", Policy: PolicyLast, RejectYears: true},
		{Name: FieldSalaries, Section: SectionSummary, RowCode: "15", Label: "Salaries, other compensation, employee benefits", AltLabels: []string{"Salaries, other compensation"}, Policy: PolicyLast, RejectYears: true},
		{Name: FieldProfFundraisingFees, Section: SectionSummary, RowCode: "16a", Label: "Professional fundraising fees", Policy: PolicyLast, RejectYears: true, AllowEmpty: true},
		{Name: FieldTotalFundraisingExp, Section: SectionSummary, RowCode: "16b", Label: "Total fundraising expenses", Policy: PolicyLast, RejectYears: true},
		{Name: FieldTotalAssets, Section: SectionSummary, RowCode: "20", Label: "Total assets", Policy: PolicyLast, RejectYears: true},
		{Name: FieldTotalLiabilities, Section: SectionSummary, RowCode: "21", Label: "Total liabilities", Policy: PolicyLast, RejectYears: true},
		{Name: FieldNetAssets, Section: SectionSummary, RowCode: "22", Label: "Net assets or fund balances", Policy: PolicyLast, RejectYears: true},
	}

	// Part VIII Statement of Revenue. Column (A) Total revenue is the first
	// amount on each row; paired-column rows (6a-7c, 8a) index into the
	// remaining columns explicitly.
	partVIII := []FieldSpec{
		{Name: "federated_campaigns", RowCode: "1a", Label: "Federated campaigns"},
		{Name: "membership_dues", RowCode: "1b", Label: "Membership dues"},
		{Name: "fundraising_events", RowCode: "1c", Label: "Fundraising events"},
		{Name: "related_organizations", RowCode: "1d", Label: "Related organizations"},
		{Name: "government_grants", RowCode: "1e", Label: "Government grants (contributions)", AltLabels: []string{"Government grants"}},
		{Name: "all_other_contributions", RowCode: "1f", Label: "All other contributions, gifts, grants", AltLabels: []string{"All other contributions"}},
		{Name: "noncash_contributions", RowCode: "1g", Label: "Noncash contributions", AltLabels: []string{"Noncash contributions included in lines"}},
		{Name: FieldContributionsTotal, RowCode: "1h", Label: "Total. Add lines 1a-1f", AltLabels: []string{"Total. Add lines"}},
		{Name: FieldProgramServiceTotal, RowCode: "2g", Label: "Total. Add lines 2a-2f", AltLabels: []string{"All other program service revenue"}, Policy: PolicyLargest},
		{Name: "investment_income", RowCode: "3", Label: "Investment income", AltLabels: []string{"Investment income (including dividends"}},
		{Name: "tax_exempt_bond_income", RowCode: "4", Label: "Income from investment of tax-exempt bond proceeds", AllowEmpty: true},
		{Name: FieldRoyalties, RowCode: "5", Label: "Royalties", AllowEmpty: true},
		{Name: "gross_rents_real", RowCode: "6a", Label: "Gross rents"},
		{Name: "gross_rents_personal", RowCode: "6a", Label: "Gross rents", AmountIndex: 1},
		{Name: "rental_expenses_real", RowCode: "6b", Label: "Less: rental expenses"},
		{Name: "rental_expenses_personal", RowCode: "6b", Label: "Less: rental expenses", AmountIndex: 1},
		{Name: "rental_income_real", RowCode: "6c", Label: "Rental income or (loss)"},
		{Name: "rental_income_personal", RowCode: "6c", Label: "Rental income or (loss)", AmountIndex: 1},
		{Name: "net_rental_income", RowCode: "6d", Label: "Net rental income or (loss)"},
		{Name: "gross_sales_securities", RowCode: "7a", Label: "Gross amount from sales of assets", AltLabels: []string{"Gross amount from sales"}},
		{Name: "gross_sales_other", RowCode: "7a", Label: "Gross amount from sales of assets", AltLabels: []string{"Gross amount from sales"}, AmountIndex: 1},
		{Name: "cost_basis_securities", RowCode: "7b", Label: "Less: cost or other basis and sales expenses", AltLabels: []string{"Less: cost or other basis"}},
		{Name: "cost_basis_other", RowCode: "7b", Label: "Less: cost or other basis and sales expenses", AltLabels: []string{"Less: cost or other basis"}, AmountIndex: 1},
		{Name: "gain_loss_securities", RowCode: "7c", Label: "Gain or (loss)"},
		{Name: "gain_loss_other", RowCode: "7c", Label: "Gain or (loss)", AmountIndex: 1},
		{Name: "net_gain_loss", RowCode: "7d", Label: "Net gain or (loss)"},
		{Name: "fundraising_gross_income", RowCode: "8a", Label: "Gross income from fundraising events"},
		{Name: "fundraising_8a_other", RowCode: "8a", Label: "Gross income from fundraising events", AmountIndex: 1},
		{Name: "fundraising_direct_expenses", RowCode: "8b", Label: "Less: direct expenses"},
		{Name: "fundraising_net_income", RowCode: "8c", Label: "Net income or (loss) from fundraising events"},
		{Name: "gaming_gross_income", RowCode: "9a", Label: "Gross income from gaming activities", AllowEmpty: true},
		{Name: "gaming_direct_expenses", RowCode: "9b", Label: "Less: direct expenses", AllowEmpty: true},
		{Name: "gaming_net_income", RowCode: "9c", Label: "Net income or (loss) from gaming activities", AllowEmpty: true},
		{Name: "inventory_gross_sales", RowCode: "10a", Label: "Gross sales of inventory, less returns", AltLabels: []string{"Gross sales of inventory"}, AllowEmpty: true},
		{Name: "inventory_cost_of_goods", RowCode: "10b", Label: "Less: cost of goods sold", AllowEmpty: true},
		{Name: "inventory_net_income", RowCode: "10c", Label: "Net income or (loss) from sales of inventory", AllowEmpty: true},
		{Name: FieldOtherRevenueTotal, RowCode: "11e", Label: "Total. Add lines 11a-11d", AltLabels: []string{"All other revenue"}, AllowEmpty: true},
		{Name: FieldTotalRevenuePartVIII, RowCode: "12", Label: "Total revenue. See instructions", AltLabels: []string{"Total revenue"}, RejectYears: true},
	}
	for i := range partVIII {
		partVIII[i].Section = SectionRevenue
	}
	specs = append(specs, partVIII...)

	// Part IX Statement of Functional Expenses. Column (A) Total expenses
	// is the first amount; line 25 carries all four columns.
	partIX := []FieldSpec{
		{Name: FieldGrantsDomesticOrgs, RowCode: "1", Label: "Grants and other assistance to domestic organizations", AltLabels: []string{"Grants and other assistance to domestic"}},
		{Name: FieldProfFundraisingSvcs, RowCode: "11e", Label: "Professional fundraising services", AllowEmpty: true},
		{Name: FieldAffiliatePayments, RowCode: "21", Label: "Payments to affiliates", AllowEmpty: true},
		{Name: FieldTotalExpensesA, RowCode: "25", Label: "Total functional expenses. Add lines 1 through 24e", AltLabels: []string{"Total functional expenses"}},
		{Name: FieldTotalExpensesB, RowCode: "25", Label: "Total functional expenses. Add lines 1 through 24e", AltLabels: []string{"Total functional expenses"}, AmountIndex: 1},
		{Name: FieldTotalExpensesC, RowCode: "25", Label: "Total functional expenses. Add lines 1 through 24e", AltLabels: []string{"Total functional expenses"}, AmountIndex: 2},
		{Name: FieldTotalExpensesD, RowCode: "25", Label: "Total functional expenses. Add lines 1 through 24e", AltLabels: []string{"Total functional expenses"}, AmountIndex: 3},
		{Name: FieldJointCosts, RowCode: "26", Label: "Joint costs", AllowEmpty: true},
	}
	for i := range partIX {
		partIX[i].Section = SectionExpenses
	}
	specs = append(specs, partIX...)

	return specs
}
