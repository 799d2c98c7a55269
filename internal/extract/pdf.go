// Package extract pulls plain text out of uploaded PDF files.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

// Result is the text of a document plus its page count.
type Result struct {
	Text  string
	Pages int
}

// Extractor turns raw file bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Result, error)
}

// PDF extracts text page by page with ledongthuc/pdf.
type PDF struct{}

// NewPDF returns a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Extract returns the concatenated page texts separated by newlines. Any
// parser failure, including a panic on malformed input, is reported as
// apperr.ErrExtraction.
func (p *PDF) Extract(ctx context.Context, data []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: malformed pdf: %v", apperr.ErrExtraction, r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperr.ErrExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}

	pages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", apperr.ErrExtraction, i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &Result{Text: sb.String(), Pages: pages}, nil
}
