// Package summarize produces short bullet summaries of a form, degrading to
// a deterministic field-based fallback when no LLM is reachable.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/formhive/form-agent/internal/extractor"
	"github.com/formhive/form-agent/internal/llm"
)

const (
	// Input text is clipped to keep latency bounded; fields usually carry
	// the key signal and are never clipped.
	maxTextChars = 1500
	// The fallback bullet list shows at most this many fields.
	maxFallbackFields = 4

	msgOpenAIOnly = "Summary unavailable (OpenAI not configured)."
	msgNoLLM      = "Summary unavailable (no LLM service available)."
)

// Summarizer renders a form summary from extracted fields plus raw text.
type Summarizer struct {
	chat          llm.ChatClient
	canUse        func() bool
	useOpenAIOnly bool
	logger        *slog.Logger
}

func New(chat llm.ChatClient, canUse func() bool, useOpenAIOnly bool, logger *slog.Logger) *Summarizer {
	if canUse == nil {
		canUse = func() bool { return chat != nil }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{chat: chat, canUse: canUse, useOpenAIOnly: useOpenAIOnly, logger: logger}
}

// Summarize never fails. LLM success returns the trimmed model output; any
// unavailability or error falls back to a deterministic bullet list built
// from form_type and the first few fields, and if even that is empty, to a
// fixed message whose wording depends on the remote-only flag.
func (s *Summarizer) Summarize(ctx context.Context, fields extractor.FormFields, fullText string) string {
	clipped := fullText
	if len(clipped) > maxTextChars {
		clipped = clipped[:maxTextChars]
	}

	if s.canUse() {
		fj, _ := json.Marshal(fields)
		prompt := fmt.Sprintf(`Summarize this medical form into 5 concise bullet points.
Keep the answer under 120 words total.
Fields: %s
Text: %s`, string(fj), clipped)

		out, err := s.chat.Complete(ctx, []llm.Message{llm.User(prompt)}, 0.2)
		if err == nil {
			return strings.TrimSpace(out)
		}
		s.logger.Warn("summarize.llm_failed", "error", err)
	}

	bullets := s.fallbackBullets(fields)
	if bullets != "" {
		return bullets
	}
	if s.useOpenAIOnly {
		return msgOpenAIOnly
	}
	return msgNoLLM
}

func (s *Summarizer) fallbackBullets(fields extractor.FormFields) string {
	var lines []string
	if fields.FormType != "" {
		lines = append(lines, "- Form Type: "+fields.FormType)
	}
	for i, f := range fields.Fields {
		if i >= maxFallbackFields {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Label, formatValue(f.Value)))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
