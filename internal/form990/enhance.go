package form990

import (
	"github.com/a3tai/form990-extract/internal/normalize"
)

// Enhancer is the second location stage. It reruns only the fields the base
// locator missed, with looser geometry: amounts on the lines directly above
// a matched row (2024-era filings render some columns value-before-label),
// and widened windows for multi-column rows whose later columns spill onto
// following lines. The stage is pure; it returns a new field set.
type Enhancer struct {
	rules     *AmountRules
	lookahead int
	specs     []FieldSpec

	locator *Locator
}

// lookBackLines is how far above a matched row the reversed-layout scan
// reaches.
const lookBackLines = 2

// NewEnhancer builds the enhancement stage over the same catalog as the
// base locator.
func NewEnhancer(rules *AmountRules, lookaheadLines int, specs []FieldSpec) *Enhancer {
	return &Enhancer{
		rules:     rules,
		lookahead: lookaheadLines,
		specs:     specs,
		locator:   NewLocator(rules, lookaheadLines, specs),
	}
}

// Apply fills gaps left by the base stage. Existing Found values are never
// overwritten here; upgrades belong to the precision stage.
func (e *Enhancer) Apply(doc *Document, in FieldSet) FieldSet {
	out := in.Merge(nil)

	for _, spec := range e.specs {
		cur := out.Get(spec.Name)
		if cur.HasValue() {
			continue
		}
		// A trusted blank is an answer, not a gap.
		if cur.State == StateFoundEmpty && spec.AllowEmpty {
			continue
		}

		if fv, ok := e.reversedLayout(doc, spec); ok {
			out[spec.Name] = fv
			continue
		}
		if spec.AmountIndex >= 1 {
			if fv, ok := e.widenedWindow(doc, spec); ok {
				out[spec.Name] = fv
			}
		}
	}

	return out
}

// reversedLayout finds the field's row and takes amounts from the lines
// directly above it.
func (e *Enhancer) reversedLayout(doc *Document, spec FieldSpec) (FieldValue, bool) {
	if spec.RowCode == "" {
		return FieldValue{}, false
	}
	text, page := doc.SectionText(spec.Section)
	if text == "" {
		return FieldValue{}, false
	}

	lines := normalize.Lines(text)
	codeRe := e.locator.rowCodeRes[spec.RowCode]
	if codeRe == nil {
		return FieldValue{}, false
	}

	for i, line := range lines {
		if !codeRe.MatchString(line) || !containsAnyLabel(line, spec) {
			continue
		}
		for j := i - 1; j >= 0 && j >= i-lookBackLines; j-- {
			amounts := e.locator.lineAmounts(lines[j], spec.RejectYears)
			if value, ok := selectAmount(amounts, spec); ok {
				fv := Found(value, SourceTextPattern, confLookahead, page)
				return fv.WithWarning("amount found above its label (reversed layout)"), true
			}
		}
		break
	}
	return FieldValue{}, false
}

// widenedWindow collects amounts across the row line and its lookahead
// window as one pool, so later columns that wrapped onto following lines
// can still be indexed.
func (e *Enhancer) widenedWindow(doc *Document, spec FieldSpec) (FieldValue, bool) {
	text, page := doc.SectionText(spec.Section)
	if text == "" {
		return FieldValue{}, false
	}

	lines := normalize.Lines(text)
	codeRe := e.locator.rowCodeRes[spec.RowCode]

	for i, line := range lines {
		if spec.RowCode != "" && (codeRe == nil || !codeRe.MatchString(line)) {
			continue
		}
		if !containsAnyLabel(line, spec) {
			continue
		}

		var pool []string
		for j := i; j <= i+e.lookahead && j < len(lines); j++ {
			pool = append(pool, e.locator.lineAmounts(lines[j], spec.RejectYears)...)
		}
		if spec.AmountIndex < len(pool) {
			return Found(pool[spec.AmountIndex], SourceTextPattern, confLookahead, page), true
		}
		break
	}
	return FieldValue{}, false
}
