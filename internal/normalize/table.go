package normalize

import (
	"strings"
)

// TableType identifies which Form 990 part a table belongs to.
type TableType string

const (
	TableUnknown  TableType = "unknown"
	TablePartI    TableType = "part_i"
	TablePartVIII TableType = "part_viii"
	TablePartIX   TableType = "part_ix"
)

const (
	minCellConfidence = 0.5
	typeBonus         = 0.2
	shortTableChars   = 50
)

// Cell is a cleaned table cell with a confidence derived from how much
// cleaning had to rewrite it.
type Cell struct {
	Text       string  `json:"text"`
	Raw        string  `json:"raw,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Table is a cleaned, classified extraction of one PDF table.
type Table struct {
	Page       int       `json:"page"`
	Type       TableType `json:"type"`
	Rows       [][]Cell  `json:"rows"`
	Confidence float64   `json:"confidence"`
}

// NormalizeTable cleans every cell of a raw table grid, classifies the table
// against the Form 990 parts, and scores it.
func NormalizeTable(raw [][]string, page int) *Table {
	t := &Table{
		Page: page,
		Rows: make([][]Cell, len(raw)),
	}

	var confSum float64
	var cellCount int
	var textLen int

	for i, row := range raw {
		t.Rows[i] = make([]Cell, len(row))
		for j, rawCell := range row {
			cleaned := CleanLine(rawCell)
			if looksLikeAmount(cleaned) {
				cleaned = NormalizeAmountToken(cleaned)
			}
			conf := 1 - changeRatio(rawCell, cleaned)
			if conf < minCellConfidence {
				conf = minCellConfidence
			}
			t.Rows[i][j] = Cell{Text: cleaned, Raw: rawCell, Confidence: conf}
			confSum += conf
			cellCount++
			textLen += len(cleaned)
		}
	}

	t.Type = classifyTable(t)

	if cellCount > 0 {
		t.Confidence = confSum / float64(cellCount)
	}
	if t.Type != TableUnknown {
		t.Confidence += typeBonus
	}
	if textLen < shortTableChars {
		t.Confidence *= 0.5
	}
	if t.Confidence > 1 {
		t.Confidence = 1
	}

	return t
}

// classifyTable matches distinctive row labels of each Form 990 part.
func classifyTable(t *Table) TableType {
	text := strings.ToLower(t.text())

	if strings.Contains(text, "federated campaigns") {
		return TablePartVIII
	}
	if strings.Contains(text, "grants") && strings.Contains(text, "domestic organizations") {
		return TablePartIX
	}
	if strings.Contains(text, "prior year") && strings.Contains(text, "current year") {
		return TablePartI
	}
	return TableUnknown
}

func (t *Table) text() string {
	var b strings.Builder
	for _, row := range t.Rows {
		for _, cell := range row {
			b.WriteString(cell.Text)
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Row returns row i, or nil when out of range.
func (t *Table) Row(i int) []Cell {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i]
}

// FindRowContaining returns the first row whose joined text contains the
// given substring, case insensitive, and its index. Returns -1 when absent.
func (t *Table) FindRowContaining(substr string) ([]Cell, int) {
	needle := strings.ToLower(substr)
	for i, row := range t.Rows {
		var b strings.Builder
		for _, cell := range row {
			b.WriteString(cell.Text)
			b.WriteByte(' ')
		}
		if strings.Contains(strings.ToLower(b.String()), needle) {
			return row, i
		}
	}
	return nil, -1
}

func looksLikeAmount(s string) bool {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ',' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}
