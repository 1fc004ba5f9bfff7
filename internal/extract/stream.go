package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// StreamBackend extracts text in content-stream order. Fast and faithful on
// digitally generated filings, but it inherits whatever ordering the
// producer wrote, which on scanned-and-OCRed PDFs can interleave columns.
type StreamBackend struct{}

// NewStreamBackend creates the content-stream backend.
func NewStreamBackend() *StreamBackend {
	return &StreamBackend{}
}

// Name identifies the backend in results and logs.
func (b *StreamBackend) Name() string {
	return "stream"
}

// Extract reads every page's plain text plus positioned words.
func (b *StreamBackend) Extract(path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stream backend: failed to open PDF: %w", err)
	}
	defer f.Close()

	result := &Result{Backend: b.Name()}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := extractStreamPage(reader, pageNum)
		result.Pages = append(result.Pages, page)
	}

	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("stream backend: document has no pages")
	}
	return result, nil
}

// extractStreamPage never lets one damaged page sink the document; the
// underlying parser panics on malformed content streams.
func extractStreamPage(reader *pdf.Reader, pageNum int) (out Page) {
	out = Page{Number: pageNum}
	defer func() {
		if recover() != nil {
			out.Text = ""
			out.Words = nil
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return out
	}

	if text, err := page.GetPlainText(nil); err == nil {
		out.Text = text
	}

	content := page.Content()
	for _, t := range content.Text {
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
	return out
}
