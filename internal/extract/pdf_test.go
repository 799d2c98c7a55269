package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

func TestExtractEmpty(t *testing.T) {
	_, err := NewPDF().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrExtraction)
}

func TestExtractNotAPDF(t *testing.T) {
	_, err := NewPDF().Extract(context.Background(), []byte("this is plainly not a pdf file at all"))
	assert.ErrorIs(t, err, apperr.ErrExtraction)
}

func TestExtractTruncatedPDF(t *testing.T) {
	_, err := NewPDF().Extract(context.Background(), []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\n"))
	assert.ErrorIs(t, err, apperr.ErrExtraction)
}

// buildPDF writes a minimal uncompressed PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	n := len(pages)
	// 1: catalog, 2: pages, 3: font, then a page and content pair per page.
	objs := make([]string, 0, 3+2*n)
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestExtractThreePages(t *testing.T) {
	data := buildPDF("Hello page one", "Second page text", "Third page")

	res, err := NewPDF().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Contains(t, res.Text, "Hello page one")
	assert.Contains(t, res.Text, "Second page text")
	assert.Contains(t, res.Text, "Third page")
	assert.Less(t, strings.Index(res.Text, "Hello page one"), strings.Index(res.Text, "Third page"))
}

func TestExtractStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDF().Extract(ctx, buildPDF("only page"))
	assert.ErrorIs(t, err, context.Canceled)
}
