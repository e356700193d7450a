package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "tesseract", cfg.OCR.Tesseract)
	assert.Equal(t, "eng", cfg.OCR.TesseractLang)
	assert.Equal(t, "en", cfg.OCR.EasyOCRLang)
	assert.False(t, cfg.OCR.DisableEasyOCR)
	assert.Equal(t, "http://localhost:8642", cfg.Vision.ServerURL)
	assert.Equal(t, 3, cfg.Index.TopK)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAX_UPLOAD_MB", "8")
	t.Setenv("OPENAI_TIMEOUT", "10s")
	t.Setenv("DISABLE_EASYOCR", "true")
	t.Setenv("RETRIEVAL_TOP_K", "5")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, int64(8<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.OCR.DisableEasyOCR)
	assert.Equal(t, 5, cfg.Index.TopK)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("OPENAI_TEMPERATURE", "warm")
	t.Setenv("DISABLE_EASYOCR", "maybe")

	cfg := Load()
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, float32(0.1), cfg.LLM.Temperature)
	assert.False(t, cfg.OCR.DisableEasyOCR)
}

func TestCanUseOpenAI(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.CanUseOpenAI(), "no key")

	cfg.LLM.APIKey = "sk-test"
	assert.True(t, cfg.CanUseOpenAI())

	cfg.LLM.ForceLocalOnly = true
	assert.False(t, cfg.CanUseOpenAI(), "local-only wins over the key")
}
