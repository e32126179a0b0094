package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"doctext-backend/internal/shared/telemetry"
)

// extractPDF concatenates the text layer of every page in order with no
// separator. A page that fails to decode contributes nothing.
func extractPDF(data []byte) (string, error) {
	reader, err := openPDF(data)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		text, err := pageText(reader, i)
		if err != nil {
			telemetry.Warn("extract.pdf.page_failed", map[string]any{"page": i, "err": err})
			continue
		}
		buf.WriteString(text)
	}
	return trimText(buf.String()), nil
}

func openPDF(data []byte) (r *pdf.Reader, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("open pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page %d: %v", num, rec)
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	// The first text-positioning operator on a page emits a line break
	// before any glyphs.
	return strings.TrimPrefix(text, "\n"), nil
}

func trimText(s string) string {
	return strings.TrimSpace(s)
}
