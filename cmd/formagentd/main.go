package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/formhive/form-agent/internal/agent"
	"github.com/formhive/form-agent/internal/config"
	"github.com/formhive/form-agent/internal/docload"
	"github.com/formhive/form-agent/internal/extractor"
	"github.com/formhive/form-agent/internal/llm/openai"
	"github.com/formhive/form-agent/internal/ocr"
	"github.com/formhive/form-agent/internal/server"
	"github.com/formhive/form-agent/internal/summarize"
	"github.com/formhive/form-agent/internal/vision"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	oai := openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        cfg.LLM.Timeout,
	}, logger)

	visual := vision.NewClient(vision.Config{
		ServerURL: cfg.Vision.ServerURL,
		Model:     cfg.Vision.Model,
		Disabled:  cfg.Vision.DisableDonut,
		Timeout:   cfg.Vision.Timeout,
	}, logger)

	runner := ocr.ExecRunner{}
	neural := ocr.NewEasyOCREngine(cfg.OCR.EasyOCR, cfg.OCR.EasyOCRLang, cfg.OCR.DisableEasyOCR, runner, logger)
	classical := ocr.NewTesseractEngine(cfg.OCR.Tesseract, cfg.OCR.TesseractLang, cfg.OCR.TessdataDir, runner, logger)
	cloud := ocr.NewCloudVisionEngine(cfg.OCR.GoogleCreds, logger)

	loader := docload.New(neural, ocr.NewChain(logger, classical, cloud), visual, logger)

	svc := agent.NewService(agent.Config{
		Loader:    loader,
		Vision:    visual,
		Extractor: extractor.New(oai, cfg.CanUseOpenAI, logger),
		Summary:   summarize.New(oai, cfg.CanUseOpenAI, cfg.LLM.UseOpenAIOnly, logger),
		Chat:      oai,
		Embedder:  oai,
		DBPath:    cfg.Index.DBPath,
		TopK:      cfg.Index.TopK,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(svc, cfg.Server.MaxUploadBytes, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown_failed", "error", err)
		os.Exit(1)
	}
}
