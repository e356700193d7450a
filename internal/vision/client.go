// Package vision wraps a Donut-style document-VQA model served by a local
// inference sidecar. The model answers free-form questions about a form image
// and extracts structured field/checkbox data directly from pixels.
//
// Every failure here degrades to "feature unavailable": the adapter must never
// abort the pipeline.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/formhive/form-agent/internal/llm"
)

// Config for the doc-VQA client.
type Config struct {
	ServerURL string // inference sidecar base URL
	Model     string // model identifier the sidecar should load
	Disabled  bool   // DISABLE_DONUT
	Timeout   time.Duration
}

// Client talks to the doc-VQA sidecar. Model load is lazy and idempotent:
// repeated calls after success are no-ops, repeated calls after failure retry.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8642"
	}
	if cfg.Model == "" {
		cfg.Model = "naver-clova-ix/donut-base-finetuned-docvqa"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Loadable reports whether the model is usable, loading it on first call.
func (c *Client) Loadable(ctx context.Context) bool {
	return c.ensureLoaded(ctx) == nil
}

func (c *Client) ensureLoaded(ctx context.Context) error {
	if c.cfg.Disabled {
		return fmt.Errorf("docvqa disabled")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	body := map[string]any{"model": c.cfg.Model}
	endpoint := strings.TrimRight(c.cfg.ServerURL, "/") + "/load"
	if _, _, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger); err != nil {
		c.logger.Warn("vision.load_failed", "model", c.cfg.Model, "error", err)
		return err
	}
	c.loaded = true
	c.logger.Info("vision.model_loaded", "model", c.cfg.Model)
	return nil
}

// generate runs one inference round trip: image + task prompt in, decoded
// token sequence out.
func (c *Client) generate(ctx context.Context, imagePath, prompt string, maxNewTokens int) (string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return "", err
	}

	dataURL, err := readAsDataURL(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	body := map[string]any{
		"image":          dataURL,
		"prompt":         prompt,
		"max_new_tokens": maxNewTokens,
		"num_beams":      3,
		"early_stopping": true,
	}
	endpoint := strings.TrimRight(c.cfg.ServerURL, "/") + "/generate"
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		return "", err
	}

	var out struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.GeneratedText, nil
}

func readAsDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// stripMarkup removes the docvqa structural tokens from decoded output.
func stripMarkup(s string) string {
	for _, tok := range []string{"<s_docvqa>", "<s_question>", "</s_question>", "<s_answer>", "</s_answer>"} {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.TrimSpace(s)
}
