// Package extract runs PDF text extraction through multiple backends and
// picks the best result per document. Backends differ in how they order
// text: the stream backend follows content-stream order, the layout backend
// reconstructs reading order from glyph positions.
package extract

import "strings"

// Word is a positioned text fragment. Coordinates are PDF points with the
// origin at the lower left of the page.
type Word struct {
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	Page int     `json:"page"`
}

// Table is a raw, uncleaned table grid recovered from one page.
type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// Page holds one page's extraction output.
type Page struct {
	Number int     `json:"number"`
	Text   string  `json:"text"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Words  []Word  `json:"words,omitempty"`
}

// Result is a complete single-backend extraction of a document.
type Result struct {
	Backend string  `json:"backend"`
	Pages   []Page  `json:"pages"`
	Tables  []Table `json:"tables,omitempty"`
}

// Text concatenates all page text.
func (r *Result) Text() string {
	var b strings.Builder
	for i, p := range r.Pages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// PageTexts returns one string per page, in order.
func (r *Result) PageTexts() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Text
	}
	return out
}

// WordCount counts whitespace-separated tokens across all pages.
func (r *Result) WordCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(strings.Fields(p.Text))
	}
	return n
}

// Backend extracts a document with one PDF library.
type Backend interface {
	Name() string
	Extract(path string) (*Result, error)
}
