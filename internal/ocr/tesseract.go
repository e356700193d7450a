package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sync"
)

var reBoxNoise = regexp.MustCompile(`(?m)^[\[\]|_~\-=.\s]{4,}$`)

// TesseractEngine binarizes the image (grayscale + Otsu threshold) and runs
// the tesseract binary on the result. A failed image decode is not fatal to
// the chain; it surfaces as an error and the next backend takes over.
type TesseractEngine struct {
	bin         string
	lang        string
	tessdataDir string
	runner      Runner
	logger      *slog.Logger

	lookPath func(string) (string, error)
	once     sync.Once
	found    bool
}

func NewTesseractEngine(bin, lang, tessdataDir string, runner Runner, logger *slog.Logger) *TesseractEngine {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{
		bin:         bin,
		lang:        lang,
		tessdataDir: tessdataDir,
		runner:      runner,
		logger:      logger,
		lookPath:    exec.LookPath,
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Available() bool {
	e.once.Do(func() {
		_, err := e.lookPath(e.bin)
		e.found = err == nil
		if !e.found {
			e.logger.Info("ocr.tesseract.unavailable", "bin", e.bin)
		}
	})
	return e.found
}

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	prepped, cleanup, err := preprocessForOCR(imagePath)
	if err != nil {
		e.logger.Warn("ocr.tesseract.decode_failed", "path", imagePath, "error", err)
		return "", fmt.Errorf("decode image: %w", err)
	}
	defer cleanup()

	args := []string{prepped, "stdout", "-l", e.lang}
	if e.tessdataDir != "" {
		args = append(args, "--tessdata-dir", e.tessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}

	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
