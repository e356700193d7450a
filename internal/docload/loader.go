// Package docload turns an uploaded file into (doc_id, text), dispatching to
// PDF parsing or the OCR fallback chain by extension, with a gated
// visual-model fallback as the last resort.
//
// The ordering is cost-aware: the cheapest and most reliable engines run
// first, and the expensive vision-model inference runs last, only for files
// whose name hints at a form or checkbox document.
package docload

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/formhive/form-agent/internal/ocr"
	"github.com/formhive/form-agent/internal/pdftext"
)

// visualFallbackQuestion is the generic instruction used when the vision
// model is the last resort rather than answering a user question.
const visualFallbackQuestion = "Extract all filled fields or marked options."

// VisualFallback is the slice of the vision adapter the loader needs.
type VisualFallback interface {
	Loadable(ctx context.Context) bool
	Answer(ctx context.Context, imagePath, question string) string
}

// Loader dispatches document text extraction. The neural engine sits outside
// the chain because its result wins even when empty; the chain covers the
// classical and cloud backends with first-non-empty semantics.
type Loader struct {
	neural ocr.Engine
	chain  *ocr.Chain
	visual VisualFallback
	logger *slog.Logger

	pdfExtract func(string) string
}

func New(neural ocr.Engine, chain *ocr.Chain, visual VisualFallback, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if chain == nil {
		chain = ocr.NewChain(logger)
	}
	return &Loader{
		neural:     neural,
		chain:      chain,
		visual:     visual,
		logger:     logger,
		pdfExtract: pdftext.ExtractText,
	}
}

// NewDocID derives an opaque document ID from the filename plus a short
// random token. It is generated whether or not extraction succeeds.
func NewDocID(path string) string {
	return filepath.Base(path) + "-" + uuid.NewString()[:8]
}

// Load extracts text from the file at path. It never fails; a document that
// defeats every backend comes back with empty text.
//
// Precedence quirk, preserved on purpose: a successful call to the neural
// engine returns its text even when empty, while the later engines are
// checked for non-empty output. See the design notes before changing this.
func (l *Loader) Load(ctx context.Context, path string) (string, string) {
	docID := NewDocID(path)
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".pdf" {
		text := l.pdfExtract(path)
		if strings.TrimSpace(text) != "" {
			l.logger.Info("docload.pdf_text", "doc_id", docID, "bytes", len(text))
			return docID, text
		}
		// No image-rendering fallback for text-less PDFs yet.
		return docID, ""
	}

	if l.neural != nil && l.neural.Available() {
		text, err := l.neural.Recognize(ctx, path)
		if err == nil {
			l.logger.Info("docload.neural_ocr", "doc_id", docID, "bytes", len(text))
			return docID, text
		}
		l.logger.Warn("docload.neural_ocr_failed", "doc_id", docID, "error", err)
	}

	if text := l.chain.ExtractText(ctx, path); strings.TrimSpace(text) != "" {
		l.logger.Info("docload.chain_ocr", "doc_id", docID, "bytes", len(text))
		return docID, text
	}

	if l.visual != nil && hasFormHint(path) && l.visual.Loadable(ctx) {
		if ans := l.visual.Answer(ctx, path, visualFallbackQuestion); strings.TrimSpace(ans) != "" {
			l.logger.Info("docload.visual_fallback", "doc_id", docID, "bytes", len(ans))
			return docID, ans
		}
	}

	return docID, ""
}

// hasFormHint gates the expensive vision fallback on the filename.
func hasFormHint(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "checkbox") || strings.Contains(lower, "form")
}
