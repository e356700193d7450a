package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formhive/form-agent/internal/llm"
)

type scriptedChat struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedChat) Complete(ctx context.Context, messages []llm.Message, temperature float32) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func always() bool { return true }
func never() bool  { return false }

const sampleText = "Form Type: Prior Authorization\nPatient Name: John Doe\nDiagnosis: Hypertension"

func TestExtractFieldsVerbatimWithOneRefinement(t *testing.T) {
	first := `{"form_type":"Prior Authorization","fields":{"Patient Name":"John Doe","Diagnosis":"Hypertension"}}`
	chat := &scriptedChat{responses: []string{first, first}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, "Prior Authorization", got.FormType)
	require.Equal(t, 2, got.Fields.Len())
	name, _ := got.Fields.Get("Patient Name")
	assert.Equal(t, "John Doe", name)
	diag, _ := got.Fields.Get("Diagnosis")
	assert.Equal(t, "Hypertension", diag)

	// 2 fields is below the refinement threshold of 3: exactly one extra call.
	assert.Equal(t, 2, chat.calls)
	assert.Contains(t, chat.prompts[1], "Refine and complete")
}

func TestExtractFieldsNoRefinementWhenEnoughFields(t *testing.T) {
	resp := `{"form_type":"Claim Form","fields":{"A":"1","B":"2","C":"3"}}`
	chat := &scriptedChat{responses: []string{resp}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 3, got.Fields.Len())
}

func TestExtractFieldsUnavailableLLM(t *testing.T) {
	chat := &scriptedChat{}
	e := New(chat, never, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Zero(t, chat.calls)
	assert.Equal(t, "Unknown", got.FormType)
	assert.Zero(t, got.Fields.Len())
}

func TestExtractFieldsMalformedJSONWrapsRawText(t *testing.T) {
	bad := "Sure! Here is the result: {not valid json"
	chat := &scriptedChat{responses: []string{bad, bad}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, "Unknown", got.FormType)
	assert.NotNil(t, got.Fields)
	assert.Equal(t, bad, got.RawText)
	// malformed first pass has zero fields, so one refinement is attempted
	assert.Equal(t, 2, chat.calls)
}

func TestExtractFieldsCallErrorStillReturnsShape(t *testing.T) {
	chat := &scriptedChat{
		responses: []string{"", ""},
		errs:      []error{errors.New("rate limited"), errors.New("rate limited")},
	}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, "Unknown", got.FormType)
	assert.NotNil(t, got.Fields)
	assert.Equal(t, 2, chat.calls, "one refinement, never more")
}

func TestExtractFieldsMissingFormTypeKeepsLabels(t *testing.T) {
	// fields key present, form_type omitted: labels must survive untouched
	// with form_type defaulted, not get rewritten through the flatten path.
	resp := `{"fields":{"Patient Name":"John Doe","Diagnosis":"Hypertension","Provider":"Dr. Smith"}}`
	chat := &scriptedChat{responses: []string{resp}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, "Unknown", got.FormType)
	require.Equal(t, 3, got.Fields.Len())
	name, ok := got.Fields.Get("Patient Name")
	require.True(t, ok)
	assert.Equal(t, "John Doe", name)
	_, prefixed := got.Fields.Get("Fields Patient Name")
	assert.False(t, prefixed)
}

func TestExtractFieldsFlattensNestedShape(t *testing.T) {
	// model ignored the requested shape and nested sections directly
	resp := `{"form_type":"Referral","patient":{"name":"Jane Doe","dob":"12/01/1989"},"urgency":"Routine"}`
	chat := &scriptedChat{responses: []string{resp, resp}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	assert.Equal(t, "Referral", got.FormType)
	name, ok := got.Fields.Get("Patient Name")
	require.True(t, ok, "nested keys are flattened with title-cased parent prefix")
	assert.Equal(t, "Jane Doe", name)
	urgency, ok := got.Fields.Get("Urgency")
	require.True(t, ok)
	assert.Equal(t, "Routine", urgency)
}

func TestExtractFieldsListValuesSurvive(t *testing.T) {
	resp := `{"form_type":"Prior Authorization","fields":{"Services":["Outpatient","Home Health"],"Diagnosis":"Diabetes","Provider":"Dr. Smith"}}`
	chat := &scriptedChat{responses: []string{resp}}
	e := New(chat, always, nil)

	got := e.ExtractFields(context.Background(), sampleText)
	services, ok := got.Fields.Get("Services")
	require.True(t, ok)
	assert.Equal(t, []any{"Outpatient", "Home Health"}, services)
}

func TestFormFieldsMarshalPreservesOrder(t *testing.T) {
	ff := FormFields{
		FormType: "Claim Form",
		Fields: Fields{
			{Label: "Zeta", Value: "1"},
			{Label: "Alpha", Value: "2"},
		},
	}
	raw, err := json.Marshal(ff)
	require.NoError(t, err)
	assert.Equal(t, `{"form_type":"Claim Form","fields":{"Zeta":"1","Alpha":"2"}}`, string(raw))
}

func TestParseOrderedObjectKeepsKeyOrder(t *testing.T) {
	obj, err := ParseOrderedObject([]byte(`{"b":"2","a":"1","c":{"x":"y"}}`))
	require.NoError(t, err)
	require.Len(t, obj, 3)
	assert.Equal(t, "b", obj[0].Label)
	assert.Equal(t, "a", obj[1].Label)
	nested, ok := obj[2].Value.(Fields)
	require.True(t, ok)
	assert.Equal(t, "x", nested[0].Label)
}
