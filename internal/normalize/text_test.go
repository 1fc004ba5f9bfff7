package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixNumericGlyphs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"l inside digits", "1l5,000", "115,000"},
		{"trailing l", "50l", "501"},
		{"O inside digits", "1O0", "100"},
		{"standalone l token", "Total revenue l", "Total revenue 1"},
		{"standalone O token", "Amount O here", "Amount 0 here"},
		{"plain word untouched", "Total liabilities", "Total liabilities"},
		{"word with l untouched", "payroll", "payroll"},
		{"word with O untouched", "Organization", "Organization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FixNumericGlyphs(tt.input))
		})
	}
}

func TestFixLabelTypos(t *testing.T) {
	assert.Equal(t, "(C) Program services", FixLabelTypos("(Cl) Program services"))
	assert.Equal(t, "Contributions 1a-1f", FixLabelTypos("Contributions ia-1f"))
	assert.Equal(t, "Statement of Revenue", FixLabelTypos("Statement of Revenus"))
}

func TestNormalizeAmountToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"384,948.", "384,948.00"},
		{"$1,234", "1,234"},
		{"1,234.56", "1,234.56"},
		{"  500 ", "500"},
		{"not a number", "not a number"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeAmountToken(tt.input))
	}
}

func TestCleanLine(t *testing.T) {
	assert.Equal(t, "12 Total revenue 1,234,567",
		CleanLine("12   Total revenue    1,234,567  "))
}

func TestStripArtifacts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dot leaders and bracket runs", "20 Total assets.......... 5,000,000 <>{}\\ ~~~~~~", "20 Total assets 5,000,000"},
		{"garbled sequences", "Gross receipts <ti \\(/1 1,234,567", "Gross receipts 1,234,567"},
		{"short runs survive", "501(c)(3) organization... see Part IV", "501(c)(3) organization... see Part IV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLine(tt.in))
		})
	}
}

func TestFixSpacedDigits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaced serial joined", "1 2 3 4 5 6 7", "1234567"},
		{"short run untouched", "5 4 - 7", "5 4 - 7"},
		{"checkbox codes untouched", "lines 1 2 3", "lines 1 2 3"},
		{"adjacent amounts untouched", "400,000 450,000", "400,000 450,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixSpacedDigits(tt.in))
		})
	}

	assert.Equal(t, "Employer identification number 5 4 - 1234567",
		CleanLine("Employer identification number 5 4 - 1 2 3 4 5 6 7"))
}

func TestCleanTextPreservesLines(t *testing.T) {
	in := "line one\nline   two\nline three"
	out := CleanText(in)
	assert.Equal(t, "line one\nline two\nline three", out)
}

func TestLines(t *testing.T) {
	got := Lines("a\nb\n\n  \n")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestChangeRatio(t *testing.T) {
	assert.Equal(t, 0.0, changeRatio("same", "same"))
	assert.InDelta(t, 0.25, changeRatio("1l00", "1100"), 0.01)
	assert.Equal(t, 1.0, changeRatio("", "new"))
}
