package extract

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// cellGap is the horizontal gap, in points, that separates table cells when
// reconstructing rows from glyph positions.
const cellGap = 18.0

// LayoutBackend reconstructs reading order from glyph positions: rows sorted
// top to bottom, words within a row left to right. Slower than the stream
// backend but far more reliable on scanned filings, and the only backend
// that recovers table grids.
type LayoutBackend struct{}

// NewLayoutBackend creates the layout-analysis backend.
func NewLayoutBackend() *LayoutBackend {
	return &LayoutBackend{}
}

// Name identifies the backend in results and logs.
func (b *LayoutBackend) Name() string {
	return "layout"
}

// Extract rebuilds each page line by line and recovers table grids from
// aligned columns. Page dimensions come from the pdfcpu cross-reference
// context, which also serves as a structural sanity check on the file.
func (b *LayoutBackend) Extract(path string) (*Result, error) {
	dims, err := pageDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("layout backend: %w", err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("layout backend: failed to open PDF: %w", err)
	}
	defer f.Close()

	result := &Result{Backend: b.Name()}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page, tables := extractLayoutPage(reader, pageNum)
		if pageNum-1 < len(dims) {
			page.Width = dims[pageNum-1].w
			page.Height = dims[pageNum-1].h
		}
		result.Pages = append(result.Pages, page)
		result.Tables = append(result.Tables, tables...)
	}

	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("layout backend: document has no pages")
	}
	return result, nil
}

type dim struct{ w, h float64 }

func pageDimensions(path string) ([]dim, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	pageDims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	out := make([]dim, len(pageDims))
	for i, d := range pageDims {
		out[i] = dim{w: d.Width, h: d.Height}
	}
	return out, nil
}

func extractLayoutPage(reader *pdf.Reader, pageNum int) (out Page, tables []Table) {
	out = Page{Number: pageNum}
	defer func() {
		if recover() != nil {
			out.Text = ""
			out.Words = nil
			tables = nil
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return out, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return out, nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	var lines []string
	var grid [][]string
	for _, row := range rows {
		texts := append([]pdf.Text(nil), row.Content...)
		sort.Slice(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		line, cells := joinRow(texts)
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		grid = append(grid, cells)

		for _, t := range texts {
			if t.S == "" {
				continue
			}
			height := t.FontSize
			if height == 0 {
				height = 12.0
			}
			out.Words = append(out.Words, Word{
				Text: t.S,
				X0:   t.X,
				Y0:   t.Y,
				X1:   t.X + t.W,
				Y1:   t.Y + height,
				Page: pageNum,
			})
		}
	}

	out.Text = strings.Join(lines, "\n")

	if tbl := gridToTable(grid, pageNum); tbl != nil {
		tables = append(tables, *tbl)
	}
	return out, tables
}

// joinRow merges a sorted glyph row into a display line and a cell split.
// A new cell starts wherever the horizontal gap exceeds cellGap.
func joinRow(texts []pdf.Text) (string, []string) {
	var line strings.Builder
	var cells []string
	var cell strings.Builder
	var prevEnd float64
	first := true

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if !first {
			gap := t.X - prevEnd
			if gap > cellGap {
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
				line.WriteByte(' ')
			} else if gap > 0.5 {
				cell.WriteByte(' ')
				line.WriteByte(' ')
			}
		}
		cell.WriteString(t.S)
		line.WriteString(t.S)
		prevEnd = t.X + t.W
		first = false
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return line.String(), cells
}

// gridToTable keeps the page's cell grid only when it actually looks like a
// table: at least two rows split into two or more columns.
func gridToTable(grid [][]string, pageNum int) *Table {
	multi := 0
	for _, row := range grid {
		if len(row) >= 2 {
			multi++
		}
	}
	if multi < 2 {
		return nil
	}
	return &Table{Page: pageNum, Rows: grid}
}
