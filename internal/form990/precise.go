package form990

import (
	"regexp"
)

var (
	// "Gross receipts $ 1,234,567" on page 1; the dollar sign anchors the
	// amount regardless of surrounding checkbox noise.
	grossReceiptsDollarRe = regexp.MustCompile(`Gross receipts\s*\$?\s*([\d,]{4,}(?:\.\d{2})?)`)
	// Reversed 2024 layout: the amount renders before the line code.
	grossReceiptsReversedRe = regexp.MustCompile(`([\d,]{4,}(?:\.\d{2})?)\s+G\b[^\n]{0,40}Gross receipts`)

	// Direct same-line matches for the contribution rows, used to upgrade
	// values the base stage only reached by lookahead.
	contribRowRes = map[string]*regexp.Regexp{
		"all_other_contributions": regexp.MustCompile(`\b1f\b[^\n]*?([\d,]{4,}(?:\.\d{2})?)`),
		"noncash_contributions":   regexp.MustCompile(`\b1g\b[^\n]*?\$?\s*([\d,]{4,}(?:\.\d{2})?)`),
		FieldContributionsTotal:   regexp.MustCompile(`\b1h\b[^\n]*?([\d,]{4,}(?:\.\d{2})?)`),
	}
)

// Refiner is the third location stage: targeted fixes for rows the generic
// strategies get wrong in known ways. Unlike the enhancer it may replace
// existing values, but only with higher-confidence evidence. Pure; returns
// a new field set.
type Refiner struct {
	rules *AmountRules
}

// NewRefiner builds the precision-fix stage.
func NewRefiner(rules *AmountRules) *Refiner {
	return &Refiner{rules: rules}
}

// Apply runs all precision fixes.
func (r *Refiner) Apply(doc *Document, in FieldSet) FieldSet {
	out := in.Merge(nil)

	r.fixGrossReceipts(doc, out)
	r.upgradeContributionRows(doc, out)
	r.guardRoyalties(out)

	return out
}

// fixGrossReceipts anchors the page 1 gross receipts figure on its dollar
// sign when the generic row match failed or settled for lookahead.
func (r *Refiner) fixGrossReceipts(doc *Document, out FieldSet) {
	cur := out.Get(FieldGrossReceipts)
	if cur.HasValue() && cur.Confidence >= confPatternLine {
		return
	}

	text, page := doc.SectionText(SectionSummary)
	if text == "" {
		return
	}

	for _, re := range []*regexp.Regexp{grossReceiptsDollarRe, grossReceiptsReversedRe} {
		m := re.FindStringSubmatch(text)
		if m == nil || !r.rules.Valid(m[1]) || LooksLikeYear(m[1]) {
			continue
		}
		if cur.HasValue() && cur.Value == m[1] {
			return
		}
		out[FieldGrossReceipts] = Found(m[1], SourceTextPattern, confPatternLine, page)
		return
	}
}

// upgradeContributionRows replaces lookahead-sourced 1f/1g/1h values when a
// direct same-line match disagrees; the same-line read is the reliable one.
func (r *Refiner) upgradeContributionRows(doc *Document, out FieldSet) {
	text, page := doc.SectionText(SectionRevenue)
	if text == "" {
		return
	}

	for name, re := range contribRowRes {
		cur := out.Get(name)
		if cur.HasValue() && cur.Confidence >= confPatternLine {
			continue
		}

		m := re.FindStringSubmatch(text)
		if m == nil || !r.rules.Valid(m[1]) {
			continue
		}
		if cur.HasValue() && cur.Value == m[1] {
			continue
		}

		fv := Found(m[1], SourceTextPattern, confPatternLine, page)
		if cur.HasValue() {
			fv = fv.WithWarning("replaced lookahead value with direct row match")
		}
		out[name] = fv
	}
}

// guardRoyalties demotes a weakly-sourced royalties figure. The royalties
// row is blank on most filings and a low-confidence hit is almost always a
// neighboring row's amount bleeding through.
func (r *Refiner) guardRoyalties(out FieldSet) {
	cur := out.Get(FieldRoyalties)
	if !cur.HasValue() || cur.Confidence >= confLabelOnly {
		return
	}
	fv := FoundEmpty(cur.Source, cur.Page)
	out[FieldRoyalties] = fv.WithWarning("discarded low-confidence royalties amount")
}
