// runocr extracts text from a single document through the same loader the
// server uses. Handy for checking which OCR backend a file ends up on.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/formhive/form-agent/internal/config"
	"github.com/formhive/form-agent/internal/docload"
	"github.com/formhive/form-agent/internal/ocr"
	"github.com/formhive/form-agent/internal/vision"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("cannot stat input", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := config.Load()

	runner := ocr.ExecRunner{}
	neural := ocr.NewEasyOCREngine(cfg.OCR.EasyOCR, cfg.OCR.EasyOCRLang, cfg.OCR.DisableEasyOCR, runner, logger)
	classical := ocr.NewTesseractEngine(cfg.OCR.Tesseract, cfg.OCR.TesseractLang, cfg.OCR.TessdataDir, runner, logger)
	cloud := ocr.NewCloudVisionEngine(cfg.OCR.GoogleCreds, logger)
	visual := vision.NewClient(vision.Config{
		ServerURL: cfg.Vision.ServerURL,
		Model:     cfg.Vision.Model,
		Disabled:  cfg.Vision.DisableDonut,
		Timeout:   cfg.Vision.Timeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	docID, text := docload.New(neural, ocr.NewChain(logger, classical, cloud), visual, logger).Load(ctx, path)
	logger.Info("loaded", "doc_id", docID, "bytes", len(text))
	fmt.Println(text)
}
