// Package pdftext extracts concatenated page text from PDF files.
//
// Failure is silent at this layer: a corrupt or unsupported file yields an
// empty string, and the caller decides whether to fall back to OCR.
package pdftext

import (
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the text of every page joined with newlines. Pages with
// no extractable text contribute an empty line. Any parse failure, including
// panics inside the PDF library, yields "".
func ExtractText(path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("pdftext.panic_recovered", "path", path, "panic", r)
			text = ""
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		slog.Debug("pdftext.open_failed", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return strings.Join(pages, "\n")
}
