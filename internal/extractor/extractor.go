// Package extractor turns form text into a structured {form_type, fields}
// mapping using the remote LLM, with JSON repair rather than failure on
// malformed model output.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/formhive/form-agent/internal/llm"
)

const (
	// A first pass yielding fewer fields than this triggers one refinement call.
	refineThreshold = 3
	// Refinement clips the form text to keep the prompt bounded.
	refineTextLimit = 4000
)

// shapeSchema describes the target output; responses that miss it are
// repaired silently and the deviation is only logged.
var shapeSchema = jsonschema.MustCompileString("form_fields.json", `{
	"type": "object",
	"required": ["form_type", "fields"],
	"properties": {
		"form_type": {"type": "string"},
		"fields": {"type": "object"}
	}
}`)

// Extractor extracts structured fields from form text.
type Extractor struct {
	chat        llm.ChatClient
	canUse      func() bool
	temperature float32
	logger      *slog.Logger
}

func New(chat llm.ChatClient, canUse func() bool, logger *slog.Logger) *Extractor {
	if canUse == nil {
		canUse = func() bool { return chat != nil }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, canUse: canUse, temperature: 0.1, logger: logger}
}

// ExtractFields never fails: whatever the remote call does (success,
// malformed JSON, or error), the result always carries form_type and fields.
// It issues at most one refinement call, and only when the first pass left
// fewer than refineThreshold fields and the remote LLM is available.
func (e *Extractor) ExtractFields(ctx context.Context, formText string) FormFields {
	var data Fields
	haveData := false

	if e.canUse() {
		msgs := []llm.Message{
			llm.System("You are a precise medical form parser."),
			llm.User(adaptivePrompt(formText)),
		}
		resp, err := e.chat.Complete(ctx, msgs, e.temperature)
		if err != nil {
			e.logger.Warn("llm.extract.failed", "error", err)
		} else {
			data, haveData = parseOrWrap(resp)
		}
	}

	if (!haveData || fieldCount(data) < refineThreshold) && e.canUse() {
		e.logger.Info("llm.extract.refining", "fields", fieldCount(data))
		partial, _ := json.Marshal(data)
		msgs := []llm.Message{
			llm.System("You are a precise medical form parser."),
			llm.User(refinePrompt(formText, string(partial))),
		}
		resp, err := e.chat.Complete(ctx, msgs, e.temperature)
		if err != nil {
			e.logger.Warn("llm.extract.refine_failed", "error", err)
			if !haveData {
				data = Fields{
					{Label: "form_type", Value: "Unknown"},
					{Label: "fields", Value: Fields{}},
				}
				haveData = true
			}
		} else {
			if refined, ok := parseOrWrap(resp); ok {
				data, haveData = refined, true
			}
		}
	}

	if !conforms(data) {
		e.logger.Info("llm.extract.repaired_shape", "fields", fieldCount(data))
	}
	return guaranteeShape(data)
}

// parseOrWrap locates the first '{' and last '}' in the response and parses
// that slice; an unparseable slice is wrapped under raw_text instead of
// surfacing an error.
func parseOrWrap(resp string) (Fields, bool) {
	start := strings.Index(resp, "{")
	if start == -1 {
		return nil, false
	}
	var slice string
	if end := strings.LastIndex(resp, "}"); end >= start {
		slice = resp[start : end+1]
	}
	obj, err := ParseOrderedObject([]byte(slice))
	if err != nil {
		return Fields{
			{Label: "form_type", Value: "Unknown"},
			{Label: "fields", Value: Fields{}},
			{Label: "raw_text", Value: resp},
		}, true
	}
	return obj, true
}

func fieldCount(data Fields) int {
	if v, ok := data.Get("fields"); ok {
		if sub, ok := v.(Fields); ok {
			return len(sub)
		}
	}
	return 0
}

// guaranteeShape enforces the output contract. Any object carrying a fields
// entry passes through with form_type defaulted; only a response missing
// fields entirely has its top-level mappings flattened (parent key
// title-cased and prefixed) into a flat fields mapping.
func guaranteeShape(data Fields) FormFields {
	if _, hasFields := data.Get("fields"); hasFields {
		out := FormFields{FormType: "Unknown"}
		for _, f := range data {
			switch f.Label {
			case "form_type":
				if s, ok := f.Value.(string); ok && s != "" {
					out.FormType = s
				}
			case "fields":
				if sub, ok := f.Value.(Fields); ok {
					out.Fields = sub
				}
			case "raw_text":
				if s, ok := f.Value.(string); ok {
					out.RawText = s
				}
			}
		}
		if out.Fields == nil {
			out.Fields = Fields{}
		}
		return out
	}

	out := FormFields{FormType: "Unknown", Fields: Fields{}}
	for _, f := range data {
		if f.Label == "form_type" {
			if s, ok := f.Value.(string); ok && s != "" {
				out.FormType = s
			}
			continue
		}
		if sub, ok := f.Value.(Fields); ok {
			for _, sf := range sub {
				out.Fields = append(out.Fields, Field{
					Label: titleCase(f.Label) + " " + titleCase(sf.Label),
					Value: sf.Value,
				})
			}
			continue
		}
		out.Fields = append(out.Fields, Field{Label: titleCase(f.Label), Value: f.Value})
	}
	return out
}

func conforms(data Fields) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return shapeSchema.Validate(v) == nil
}

func adaptivePrompt(formText string) string {
	return fmt.Sprintf(`You are an intelligent medical document parser.

Your task:
1. Identify what kind of form this is (e.g., "Texas Prior Authorization", "Claim Form", "Prescription", "Referral", etc.).
2. Extract ALL clearly labeled fields and their values from the document text.
3. Preserve the original field labels exactly as they appear (e.g., "NPI #", "Diagnosis Description", "Request Type").
4. If a field has multiple values (e.g., multiple diagnoses or providers), store them as a list.
5. Ignore instructions, headers, or footnotes unless they contain actual data.
6. If the field value is missing or empty, skip it entirely.
7. Return only valid JSON, structured as:
{
  "form_type": "<detected form type>",
  "fields": {
    "<field_label>": "<field_value>",
    "<field_label>": ["<value1>", "<value2>"]
  }
}

Example:
Input text:
"Form Type: Prior Authorization\nPatient Name: Jane Doe\nDOB: 12/01/1989\nDiagnosis: Diabetes\nProvider: Dr. Smith\nICD10: E11.9"

Expected output:
{
  "form_type": "Prior Authorization",
  "fields": {
    "Patient Name": "Jane Doe",
    "DOB": "12/01/1989",
    "Diagnosis": "Diabetes",
    "Provider": "Dr. Smith",
    "ICD10": "E11.9"
  }
}

Now extract all fields from this text:
<<<FORM TEXT>>>
%s
<<<END FORM TEXT>>>`, formText)
}

func refinePrompt(formText, partialJSON string) string {
	if len(formText) > refineTextLimit {
		formText = formText[:refineTextLimit]
	}
	return fmt.Sprintf(`Refine and complete this adaptive JSON extraction.
Ensure valid JSON structure and infer missing values only if explicitly stated.

Form Text:
%s

Partial JSON (if any):
%s`, formText, partialJSON)
}
