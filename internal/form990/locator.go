package form990

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/a3tai/form990-extract/internal/extract"
	"github.com/a3tai/form990-extract/internal/normalize"
)

// Document is the cleaned, analyzed input the locator works on. Words are
// optional; only backends that track glyph positions provide them.
type Document struct {
	Pages    []string
	Tables   []*normalize.Table
	Words    []extract.Word
	Analysis *DocumentAnalysis
}

// Text joins all pages.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

var (
	partVIIIRegionRe = regexp.MustCompile(`(?s)Part\s+VIII\s+Statement of Revenue.*?(?:Part\s+IX\s+Statement of Functional|$)`)
	partIXRegionRe   = regexp.MustCompile(`(?s)Part\s+IX\s+Statement of Functional.*?(?:Part\s+X\s|$)`)

	einRe       = regexp.MustCompile(`\b(\d{2}-\d{7})\b`)
	einFallback = regexp.MustCompile(`Address change[^\n]*?(\d{9})`)
	einSpacedRe = regexp.MustCompile(`(\d)\s+(\d)\s*-\s*(\d)\s+(\d)\s+(\d)\s+(\d)\s+(\d)\s+(\d)\s+(\d)`)

	// Digit-spacing repair joins the seven-digit serial but leaves the
	// two-digit prefix spaced, so that half-repaired shape gets its own
	// pattern.
	einSpacedPrefixRe = regexp.MustCompile(`\b(\d)\s+(\d)\s*-\s*(\d{7})\b`)
)

// SectionText returns the text region for a section and the 1-based page it
// starts on. The summary is the form's first page; Part VIII and IX are
// clipped out of the running text by their headers.
func (d *Document) SectionText(section string) (string, int) {
	switch section {
	case SectionSummary:
		start := 1
		if d.Analysis != nil {
			start = d.Analysis.FormStartPage
		}
		if start >= 1 && start <= len(d.Pages) {
			return d.Pages[start-1], start
		}
		return "", 0
	case SectionRevenue:
		return d.sectionRegion(partVIIIRegionRe, SectionRevenue)
	case SectionExpenses:
		return d.sectionRegion(partIXRegionRe, SectionExpenses)
	}
	return "", 0
}

func (d *Document) sectionRegion(re *regexp.Regexp, section string) (string, int) {
	page := 0
	if d.Analysis != nil {
		if pages := d.Analysis.SectionPages()[section]; len(pages) > 0 {
			page = pages[0]
		}
	}
	if m := re.FindString(d.Text()); m != "" {
		return m, page
	}
	// Header regex missed; fall back to the classifier's page assignment.
	if page >= 1 && page <= len(d.Pages) {
		return d.Pages[page-1], page
	}
	return "", 0
}

// Confidence levels per location strategy. Table cells carry their own
// cleaning confidence instead.
const (
	confPatternLine   = 0.9
	confLookahead     = 0.75
	confLabelOnly     = 0.6
	confLabelLookNear = 0.55
	confEINPattern    = 0.9
	confEINFallback   = 0.7
	confEINOCRFixed   = 0.5
	confRowEmpty      = 0.8
	confRowEmptyWeak  = 0.5
)

// Locator turns a document into a field set by interpreting the declarative
// field catalog. Strategies run in a fixed order per field and the first
// producing a value wins: table row, row-code line match, lookahead lines,
// label-only line match.
type Locator struct {
	rules     *AmountRules
	lookahead int
	specs     []FieldSpec

	rowCodeRes map[string]*regexp.Regexp
}

// NewLocator builds a locator over the given catalog.
func NewLocator(rules *AmountRules, lookaheadLines int, specs []FieldSpec) *Locator {
	l := &Locator{
		rules:      rules,
		lookahead:  lookaheadLines,
		specs:      specs,
		rowCodeRes: make(map[string]*regexp.Regexp),
	}
	for _, s := range specs {
		if s.RowCode != "" {
			if _, ok := l.rowCodeRes[s.RowCode]; !ok {
				l.rowCodeRes[s.RowCode] = regexp.MustCompile(`\b` + regexp.QuoteMeta(s.RowCode) + `\b`)
			}
		}
	}
	return l
}

// Locate runs every field strategy against the document.
func (l *Locator) Locate(doc *Document) FieldSet {
	fields := make(FieldSet, len(l.specs)+1)
	fields[FieldEIN] = l.LocateEIN(doc)
	for _, spec := range l.specs {
		fields[spec.Name] = l.LocateField(doc, spec)
	}
	return fields
}

// LocateField resolves a single field spec.
func (l *Locator) LocateField(doc *Document, spec FieldSpec) FieldValue {
	if fv, ok := l.fromTables(doc, spec); ok {
		return fv
	}
	if fv, ok := l.fromWords(doc, spec); ok {
		return fv
	}

	text, page := doc.SectionText(spec.Section)
	if text == "" {
		return NotFound()
	}
	return l.fromText(text, page, spec)
}

// fromTables looks the field up in normalized tables matching the section.
func (l *Locator) fromTables(doc *Document, spec FieldSpec) (FieldValue, bool) {
	want := sectionTableType(spec.Section)
	if want == normalize.TableUnknown {
		return FieldValue{}, false
	}

	for _, t := range doc.Tables {
		if t.Type != want {
			continue
		}
		row := l.findTableRow(t, spec)
		if row == nil {
			continue
		}

		amounts, confs := l.rowAmounts(row, spec.RejectYears)
		if value, conf, ok := selectWithConfidence(amounts, confs, spec); ok {
			return Found(value, SourceTable, conf, t.Page), true
		}
		return l.emptyRow(spec, SourceTable, t.Page), true
	}
	return FieldValue{}, false
}

func (l *Locator) findTableRow(t *normalize.Table, spec FieldSpec) []normalize.Cell {
	codeRe := l.rowCodeRes[spec.RowCode]
	for _, row := range t.Rows {
		joined := joinCells(row)
		codeOK := spec.RowCode == "" || (codeRe != nil && codeRe.MatchString(joined))
		if codeOK && containsAnyLabel(joined, spec) {
			return row
		}
	}
	// Label alone still identifies the row when the code cell was dropped.
	row, _ := t.FindRowContaining(spec.Label)
	return row
}

func (l *Locator) rowAmounts(row []normalize.Cell, rejectYears bool) ([]string, []float64) {
	var amounts []string
	var confs []float64
	for _, cell := range row {
		for _, a := range l.rules.FindAll(cell.Text) {
			if rejectYears && LooksLikeYear(a) {
				continue
			}
			amounts = append(amounts, a)
			confs = append(confs, cell.Confidence)
		}
	}
	return amounts, confs
}

// confCoordinate is the confidence for baseline-matched coordinate hits.
const confCoordinate = 0.85

// baselineTolerance is the vertical distance, in points, within which two
// glyph runs count as the same row.
const baselineTolerance = 2.0

// fromWords resolves the field from glyph positions: a run matching the
// row code exactly anchors the baseline, amounts are read left to right
// from the runs to its right. Only works when a backend supplied words and
// the classifier pinned the section's page.
func (l *Locator) fromWords(doc *Document, spec FieldSpec) (FieldValue, bool) {
	if len(doc.Words) == 0 || spec.RowCode == "" {
		return FieldValue{}, false
	}
	_, page := doc.SectionText(spec.Section)
	if page == 0 {
		return FieldValue{}, false
	}

	for _, anchor := range doc.Words {
		if anchor.Page != page || strings.TrimSpace(anchor.Text) != spec.RowCode {
			continue
		}

		var row []extract.Word
		for _, w := range doc.Words {
			if w.Page == page && math.Abs(w.Y0-anchor.Y0) <= baselineTolerance {
				row = append(row, w)
			}
		}
		line, amounts := l.rowLineAndAmounts(row, anchor, spec.RejectYears)
		if !containsAnyLabel(line, spec) {
			continue
		}
		if value, ok := selectAmount(amounts, spec); ok {
			return Found(value, SourceCoordinate, confCoordinate, page), true
		}
		// Row anchored but no amount on the baseline; this row is blank.
		if spec.AllowEmpty {
			return l.emptyRow(spec, SourceCoordinate, page), true
		}
		return FieldValue{}, false
	}
	return FieldValue{}, false
}

// rowLineAndAmounts joins a baseline's runs in X order and collects the
// valid amounts appearing right of the anchor.
func (l *Locator) rowLineAndAmounts(row []extract.Word, anchor extract.Word, rejectYears bool) (string, []string) {
	for i := 1; i < len(row); i++ {
		for j := i; j > 0 && row[j].X0 < row[j-1].X0; j-- {
			row[j], row[j-1] = row[j-1], row[j]
		}
	}

	var b strings.Builder
	var amounts []string
	for i, w := range row {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
		if w.X0 <= anchor.X0 {
			continue
		}
		for _, a := range l.rules.FindAll(w.Text) {
			if rejectYears && LooksLikeYear(a) {
				continue
			}
			amounts = append(amounts, a)
		}
	}
	return b.String(), amounts
}

// fromText scans the section's lines for the field's row.
func (l *Locator) fromText(text string, page int, spec FieldSpec) FieldValue {
	lines := normalize.Lines(text)
	codeRe := l.rowCodeRes[spec.RowCode]

	// Row code plus label on the same line, either order.
	for i, line := range lines {
		if spec.RowCode == "" || codeRe == nil || !codeRe.MatchString(line) {
			continue
		}
		if !containsAnyLabel(line, spec) {
			continue
		}
		return l.valueNearLine(lines, i, page, spec, confPatternLine, confLookahead)
	}

	// Label only.
	for i, line := range lines {
		if !containsAnyLabel(line, spec) {
			continue
		}
		return l.valueNearLine(lines, i, page, spec, confLabelOnly, confLabelLookNear)
	}

	return NotFound()
}

// valueNearLine selects an amount from the matched line or, failing that,
// from the configured number of following lines.
func (l *Locator) valueNearLine(lines []string, i, page int, spec FieldSpec, lineConf, aheadConf float64) FieldValue {
	amounts := l.lineAmounts(lines[i], spec.RejectYears)
	if value, ok := selectAmount(amounts, spec); ok {
		return Found(value, SourceTextPattern, lineConf, page)
	}

	// Rows that are legitimately blank on most filings must not steal the
	// next row's amount through lookahead; a bare row line is the answer.
	if spec.AllowEmpty {
		return l.emptyRow(spec, SourceTextPattern, page)
	}

	for j := i + 1; j <= i+l.lookahead && j < len(lines); j++ {
		amounts = l.lineAmounts(lines[j], spec.RejectYears)
		if value, ok := selectAmount(amounts, spec); ok {
			return Found(value, SourceTextPattern, aheadConf, page)
		}
	}

	return l.emptyRow(spec, SourceTextPattern, page)
}

func (l *Locator) lineAmounts(line string, rejectYears bool) []string {
	var out []string
	for _, a := range l.rules.FindAll(line) {
		if rejectYears && LooksLikeYear(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// emptyRow reports a located row without an amount. Rows the catalog marks
// AllowEmpty are trusted blanks; anywhere else the blank is suspicious and
// carries a warning.
func (l *Locator) emptyRow(spec FieldSpec, src Source, page int) FieldValue {
	fv := FoundEmpty(src, page)
	if !spec.AllowEmpty {
		fv.Confidence = confRowEmptyWeak
		fv = fv.WithWarning(fmt.Sprintf("row %s located without an amount", spec.RowCode))
	}
	return fv
}

// LocateEIN finds the employer identification number anywhere in the
// document: direct pattern, the page 1 "Address change" line fallback, then
// OCR-spaced digit repair.
func (l *Locator) LocateEIN(doc *Document) FieldValue {
	text := doc.Text()

	for _, m := range einRe.FindAllStringSubmatch(text, -1) {
		warnings, ok := ValidateEIN(m[1])
		if !ok {
			continue
		}
		fv := Found(m[1], SourceTextPattern, confEINPattern, 0)
		for _, w := range warnings {
			fv = fv.WithWarning(w)
		}
		return fv
	}

	if m := einFallback.FindStringSubmatch(text); m != nil {
		ein := m[1][:2] + "-" + m[1][2:]
		if warnings, ok := ValidateEIN(ein); ok {
			fv := Found(ein, SourceTextPattern, confEINFallback, 0)
			for _, w := range warnings {
				fv = fv.WithWarning(w)
			}
			return fv
		}
	}

	if m := einSpacedRe.FindStringSubmatch(text); m != nil {
		ein := m[1] + m[2] + "-" + m[3] + m[4] + m[5] + m[6] + m[7] + m[8] + m[9]
		if warnings, ok := ValidateEIN(ein); ok {
			fv := Found(ein, SourceTextPatternOCR, confEINOCRFixed, 0)
			fv = fv.WithWarning("EIN reassembled from OCR-spaced digits")
			for _, w := range warnings {
				fv = fv.WithWarning(w)
			}
			return fv
		}
	}

	if m := einSpacedPrefixRe.FindStringSubmatch(text); m != nil {
		ein := m[1] + m[2] + "-" + m[3]
		if warnings, ok := ValidateEIN(ein); ok {
			fv := Found(ein, SourceTextPatternOCR, confEINOCRFixed, 0)
			fv = fv.WithWarning("EIN reassembled from OCR-spaced digits")
			for _, w := range warnings {
				fv = fv.WithWarning(w)
			}
			return fv
		}
	}

	return NotFound()
}

func sectionTableType(section string) normalize.TableType {
	switch section {
	case SectionSummary:
		return normalize.TablePartI
	case SectionRevenue:
		return normalize.TablePartVIII
	case SectionExpenses:
		return normalize.TablePartIX
	}
	return normalize.TableUnknown
}

func containsAnyLabel(s string, spec FieldSpec) bool {
	if containsFold(s, spec.Label) {
		return true
	}
	for _, alt := range spec.AltLabels {
		if containsFold(s, alt) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func joinCells(row []normalize.Cell) string {
	var b strings.Builder
	for i, c := range row {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Text)
	}
	return b.String()
}

// selectAmount applies the spec's column index or policy to the candidates.
func selectAmount(amounts []string, spec FieldSpec) (string, bool) {
	if len(amounts) == 0 {
		return "", false
	}
	if spec.AmountIndex >= 1 {
		if spec.AmountIndex < len(amounts) {
			return amounts[spec.AmountIndex], true
		}
		return "", false
	}
	switch spec.Policy {
	case PolicyLast:
		return amounts[len(amounts)-1], true
	case PolicyLargest:
		return largestGrouped(amounts)
	default:
		return amounts[0], true
	}
}

// selectWithConfidence is selectAmount keeping the chosen cell's confidence.
func selectWithConfidence(amounts []string, confs []float64, spec FieldSpec) (string, float64, bool) {
	value, ok := selectAmount(amounts, spec)
	if !ok {
		return "", 0, false
	}
	for i, a := range amounts {
		if a == value {
			return value, confs[i], true
		}
	}
	return value, confs[0], true
}

func largestGrouped(amounts []string) (string, bool) {
	best := ""
	var bestVal float64
	for _, a := range amounts {
		if !strings.Contains(a, ",") {
			continue
		}
		v, err := ParseAmount(a)
		if err != nil {
			continue
		}
		if best == "" || v > bestVal {
			best, bestVal = a, v
		}
	}
	if best == "" {
		// No grouped candidate; the first one is the only defensible pick.
		return amounts[0], true
	}
	return best, true
}
