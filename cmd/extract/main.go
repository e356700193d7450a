// extract loads a document, runs field extraction, and prints the structured
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/formhive/form-agent/internal/config"
	"github.com/formhive/form-agent/internal/docload"
	"github.com/formhive/form-agent/internal/extractor"
	"github.com/formhive/form-agent/internal/llm/openai"
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
		logger.Error("usage", "cmd", "extract <file>")
		os.Exit(2)
	}
	path := os.Args[1]

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

	oai := openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        cfg.LLM.Timeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	docID, text := docload.New(neural, ocr.NewChain(logger, classical, cloud), visual, logger).Load(ctx, path)
	fields := extractor.New(oai, cfg.CanUseOpenAI, logger).ExtractFields(ctx, text)

	out, err := json.MarshalIndent(map[string]any{"doc_id": docID, "result": fields}, "", "  ")
	if err != nil {
		logger.Error("marshal result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
