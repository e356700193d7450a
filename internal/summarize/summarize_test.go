package summarize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formhive/form-agent/internal/extractor"
	"github.com/formhive/form-agent/internal/llm"
)

type stubChat struct {
	out string
	err error
}

func (s *stubChat) Complete(ctx context.Context, msgs []llm.Message, temp float32) (string, error) {
	return s.out, s.err
}

func always() bool { return true }
func never() bool  { return false }

func TestSummarizeUsesLLMWhenAvailable(t *testing.T) {
	s := New(&stubChat{out: "  - Prior auth for John Doe  "}, always, false, nil)
	got := s.Summarize(context.Background(), extractor.FormFields{}, "text")
	assert.Equal(t, "- Prior auth for John Doe", got)
}

func TestSummarizeFallbackBulletsKeepFieldOrder(t *testing.T) {
	fields := extractor.FormFields{
		FormType: "Prior Authorization",
		Fields: extractor.Fields{
			{Label: "Patient Name", Value: "John Doe"},
			{Label: "DOB", Value: "02/14/1980"},
			{Label: "Diagnosis", Value: "Hypertension"},
			{Label: "Provider", Value: "Dr. Smith"},
			{Label: "NPI #", Value: "1234567890"},
		},
	}
	s := New(&stubChat{err: errors.New("down")}, always, false, nil)
	got := s.Summarize(context.Background(), fields, "")

	assert.Equal(t,
		"- Form Type: Prior Authorization\n"+
			"- Patient Name: John Doe\n"+
			"- DOB: 02/14/1980\n"+
			"- Diagnosis: Hypertension\n"+
			"- Provider: Dr. Smith",
		got, "first 4 fields only, in stored order")
}

func TestSummarizeListValuesJoined(t *testing.T) {
	fields := extractor.FormFields{
		FormType: "Referral",
		Fields: extractor.Fields{
			{Label: "Services", Value: []any{"Outpatient", "Home Health"}},
		},
	}
	s := New(nil, never, false, nil)
	got := s.Summarize(context.Background(), fields, "")
	assert.Equal(t, "- Form Type: Referral\n- Services: Outpatient, Home Health", got)
}

func TestSummarizeUnavailableMessages(t *testing.T) {
	empty := extractor.FormFields{}

	s := New(nil, never, false, nil)
	assert.Equal(t, "Summary unavailable (no LLM service available).", s.Summarize(context.Background(), empty, ""))

	s = New(nil, never, true, nil)
	assert.Equal(t, "Summary unavailable (OpenAI not configured).", s.Summarize(context.Background(), empty, ""))
}
