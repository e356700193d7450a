// Package server exposes the form pipeline over HTTP. Uploads arrive as
// multipart forms, get spooled to temp files (the loaders work on paths), and
// are cleaned up when the request ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/formhive/form-agent/constants"
	"github.com/formhive/form-agent/internal/agent"
	"github.com/formhive/form-agent/internal/common"
	"github.com/formhive/form-agent/internal/export"
	"github.com/formhive/form-agent/internal/extractor"
)

// FormService is the pipeline surface the handlers call.
type FormService interface {
	AskForm(ctx context.Context, path, question string) (string, error)
	SummarizeForm(ctx context.Context, path string) (agent.SummaryResult, error)
	ExtractFormFields(ctx context.Context, path string) (extractor.FormFields, error)
	CrossFormQA(ctx context.Context, paths []string, question string) (string, error)
}

type Server struct {
	svc            FormService
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(svc FormService, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Server{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/forms/qa", s.handleQA)
	r.Post("/forms/summary", s.handleSummary)
	r.Post("/forms/insights", s.handleInsights)
	r.Post("/forms/fields/export", s.handleExport)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "form-agent"})
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := r.FormValue("question")
	if question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	path, cleanup, err := s.spoolOne(r, "file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()

	answer, err := s.svc.AskForm(r.Context(), path, question)
	if err != nil {
		s.serviceError(w, "qa", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path, cleanup, err := s.spoolOne(r, "file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()

	result, err := s.svc.SummarizeForm(r.Context(), path)
	if err != nil {
		s.serviceError(w, "summary", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := r.FormValue("question")
	if question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	dir, err := os.MkdirTemp("", "forms-*")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	paths := make([]string, 0, len(headers))
	for _, fh := range headers {
		p, err := saveUpload(dir, fh)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		paths = append(paths, p)
	}

	answer, err := s.svc.CrossFormQA(r.Context(), paths, question)
	if err != nil {
		s.serviceError(w, "insights", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "documents": len(paths)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path, cleanup, err := s.spoolOne(r, "file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()

	fields, err := s.svc.ExtractFormFields(r.Context(), path)
	if err != nil {
		s.serviceError(w, "export", err)
		return
	}
	data, err := export.FieldsXLSX(fields, s.logger)
	if err != nil {
		s.serviceError(w, "export", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="form_fields.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// spoolOne writes the named upload to a temp directory, keeping the original
// filename; extension and name hints drive the extraction path downstream.
func (s *Server) spoolOne(r *http.Request, field string) (string, func(), error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", nil, fmt.Errorf("%s is required", field)
	}
	fh := r.MultipartForm.File[field][0]

	dir, err := os.MkdirTemp("", "forms-*")
	if err != nil {
		return "", nil, err
	}
	path, err := saveUpload(dir, fh)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { _ = os.RemoveAll(dir) }, nil
}

func saveUpload(dir string, fh *multipart.FileHeader) (string, error) {
	if !constants.IsAllowedExt(fh.Filename) {
		return "", fmt.Errorf("unsupported file type: %s", filepath.Base(fh.Filename))
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	path := filepath.Join(dir, filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return path, dst.Close()
}

func (s *Server) serviceError(w http.ResponseWriter, op string, err error) {
	s.logger.Warn("server."+op+".failed", "error", err)
	if errors.Is(err, common.ErrInvalidInput) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.write_json_failed", "error", err)
	}
}
