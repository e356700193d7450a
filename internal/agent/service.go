// Package agent orchestrates the document pipeline behind the HTTP surface:
// load, enrich with visual extraction, index, retrieve, answer or summarize.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/formhive/form-agent/internal/common"
	"github.com/formhive/form-agent/internal/extractor"
	"github.com/formhive/form-agent/internal/index"
	"github.com/formhive/form-agent/internal/llm"
	"github.com/formhive/form-agent/internal/qa"
)

// visualSectionHeader separates OCR/PDF text from the vision model's
// structured read of the same page inside one indexed document.
const visualSectionHeader = "\n\n=== VISUAL/CHECKBOX DATA ===\n"

// checkboxKeywords route a question to the visual answer even when the RAG
// answer already mentions it.
var checkboxKeywords = []string{"checkbox", "marked", "checked", "selected", "urgent", "routine", "option"}

// Loader is the document-loading slice the service needs.
type Loader interface {
	Load(ctx context.Context, path string) (string, string)
}

// VisionModel is the visual-reasoning slice the service needs. A nil model
// disables enrichment and visual answers.
type VisionModel interface {
	Loadable(ctx context.Context) bool
	Answer(ctx context.Context, imagePath, question string) string
	ExtractFormData(ctx context.Context, imagePath string) map[string]any
}

// FieldExtractor turns raw text into structured fields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, formText string) extractor.FormFields
}

// SummaryWriter renders a summary from fields plus raw text.
type SummaryWriter interface {
	Summarize(ctx context.Context, fields extractor.FormFields, fullText string) string
}

// Indexer is the per-request vector index. *index.Index satisfies it.
type Indexer interface {
	Build(ctx context.Context, docs []index.Document) error
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
	Close() error
}

// Service wires the pipeline together. Each request builds its own index, so
// concurrent requests never share retrieval state.
type Service struct {
	loader    Loader
	vision    VisionModel
	extractor FieldExtractor
	summary   SummaryWriter
	chat      llm.ChatClient
	topK      int
	logger    *slog.Logger

	newIndex func() (Indexer, error)
}

type Config struct {
	Loader    Loader
	Vision    VisionModel
	Extractor FieldExtractor
	Summary   SummaryWriter
	Chat      llm.ChatClient
	Embedder  llm.Embedder
	DBPath    string
	TopK      int
	Logger    *slog.Logger
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		loader:    cfg.Loader,
		vision:    cfg.Vision,
		extractor: cfg.Extractor,
		summary:   cfg.Summary,
		chat:      cfg.Chat,
		topK:      topK,
		logger:    logger,
		newIndex: func() (Indexer, error) {
			return index.New(cfg.Embedder, cfg.DBPath, logger)
		},
	}
}

// SummaryResult pairs the extracted fields with their rendered summary.
type SummaryResult struct {
	DocID   string               `json:"doc_id"`
	Fields  extractor.FormFields `json:"fields"`
	Summary string               `json:"summary"`
}

// AskForm answers a question about a single uploaded form. The RAG answer and
// the visual answer are reconciled: the visual one wins when the question is
// about checkboxes or when the RAG answer does not already contain it.
func (s *Service) AskForm(ctx context.Context, path, question string) (string, error) {
	doc := s.loadEnriched(ctx, path)

	visual := ""
	if s.vision != nil && isImage(path) && s.vision.Loadable(ctx) {
		visual = s.vision.Answer(ctx, path, question)
	}

	ix, err := s.newIndex()
	if err != nil {
		return "", fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = ix.Close() }()

	if err := ix.Build(ctx, []index.Document{doc}); err != nil {
		return "", fmt.Errorf("build index: %w", err)
	}
	docs, err := ix.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", err
	}

	rag, err := qa.New(s.chat, ix, s.logger).Answer(ctx, question, docs)
	if err != nil {
		return "", err
	}

	return s.combine(question, visual, rag), nil
}

// SummarizeForm extracts fields from a single form and summarizes it.
func (s *Service) SummarizeForm(ctx context.Context, path string) (SummaryResult, error) {
	docID, text := s.loader.Load(ctx, path)
	fields := s.extractor.ExtractFields(ctx, text)
	summary := s.summary.Summarize(ctx, fields, text)
	return SummaryResult{DocID: docID, Fields: fields, Summary: summary}, nil
}

// ExtractFormFields extracts structured fields from a single form, without
// generating a summary.
func (s *Service) ExtractFormFields(ctx context.Context, path string) (extractor.FormFields, error) {
	_, text := s.loader.Load(ctx, path)
	return s.extractor.ExtractFields(ctx, text), nil
}

// CrossFormQA answers a question over several forms at once: all documents go
// into one index and retrieval picks the relevant chunks across files.
func (s *Service) CrossFormQA(ctx context.Context, paths []string, question string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: no documents given", common.ErrInvalidInput)
	}

	docs := make([]index.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, s.loadEnriched(ctx, p))
	}

	ix, err := s.newIndex()
	if err != nil {
		return "", fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = ix.Close() }()

	if err := ix.Build(ctx, docs); err != nil {
		return "", fmt.Errorf("build index: %w", err)
	}
	chunks, err := ix.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", err
	}

	answer, err := qa.New(s.chat, ix, s.logger).Answer(ctx, question, chunks)
	if err != nil {
		return "", err
	}
	s.logger.Info("agent.cross_form_qa", "documents", len(paths))
	return answer, nil
}

// loadEnriched loads a document and, for images, appends the vision model's
// structured extraction so checkbox state survives into retrieval.
func (s *Service) loadEnriched(ctx context.Context, path string) index.Document {
	docID, text := s.loader.Load(ctx, path)

	if s.vision != nil && isImage(path) && s.vision.Loadable(ctx) {
		if data := s.vision.ExtractFormData(ctx, path); len(data) > 0 {
			if js, err := json.MarshalIndent(data, "", "  "); err == nil {
				text += visualSectionHeader + string(js)
			}
		}
	}
	return index.Document{DocID: docID, Text: text}
}

func (s *Service) combine(question, visual, rag string) string {
	if strings.TrimSpace(visual) == "" {
		return rag
	}
	lowerQ := strings.ToLower(question)
	for _, k := range checkboxKeywords {
		if strings.Contains(lowerQ, k) {
			return visual + " (verified via visual reasoning)"
		}
	}
	if !strings.Contains(strings.ToLower(rag), strings.ToLower(visual)) {
		return visual + " (verified via visual reasoning)"
	}
	return rag
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
