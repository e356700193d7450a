package ocr

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"sync"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// annotateFunc is the one Cloud Vision call we make; extracted for test stubs.
type annotateFunc func(ctx context.Context, req *vision.BatchAnnotateImagesRequest) (*vision.BatchAnnotateImagesResponse, error)

// CloudVisionEngine sends raw image bytes to the Google Cloud Vision
// TEXT_DETECTION endpoint. Remote failures are logged and swallowed: this is
// the last OCR backend before the expensive visual-model fallback, and the
// pipeline must keep functioning without cloud credentials.
type CloudVisionEngine struct {
	credsFile string
	logger    *slog.Logger

	mu       sync.Mutex
	annotate annotateFunc
}

func NewCloudVisionEngine(credsFile string, logger *slog.Logger) *CloudVisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudVisionEngine{credsFile: credsFile, logger: logger}
}

// NewCloudVisionEngineWithAnnotator injects the annotate call; used by tests.
func NewCloudVisionEngineWithAnnotator(fn annotateFunc, logger *slog.Logger) *CloudVisionEngine {
	e := NewCloudVisionEngine("", logger)
	e.annotate = fn
	return e
}

func (e *CloudVisionEngine) Name() string { return "cloud-vision" }

func (e *CloudVisionEngine) Available() bool {
	return e.annotate != nil || e.credsFile != ""
}

func (e *CloudVisionEngine) ensureService(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.annotate != nil {
		return nil
	}
	svc, err := vision.NewService(ctx, option.WithCredentialsFile(e.credsFile))
	if err != nil {
		return err
	}
	e.annotate = func(ctx context.Context, req *vision.BatchAnnotateImagesRequest) (*vision.BatchAnnotateImagesResponse, error) {
		return svc.Images.Annotate(req).Context(ctx).Do()
	}
	return nil
}

// Recognize returns empty text on any remote error; it never propagates one.
func (e *CloudVisionEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		e.logger.Warn("ocr.cloudvision.read_failed", "path", imagePath, "error", err)
		return "", nil
	}
	if err := e.ensureService(ctx); err != nil {
		e.logger.Warn("ocr.cloudvision.init_failed", "error", err)
		return "", nil
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(raw)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := e.annotate(ctx, req)
	if err != nil {
		e.logger.Warn("ocr.cloudvision.annotate_failed", "error", err)
		return "", nil
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		e.logger.Warn("ocr.cloudvision.remote_error", "message", r.Error.Message)
		return "", nil
	}

	parts := make([]string, 0, len(r.TextAnnotations))
	for _, a := range r.TextAnnotations {
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, "\n"), nil
}
