package vision

import (
	"context"
	"encoding/json"
	"regexp"
)

var reJSONObject = regexp.MustCompile(`(?s)\{.*\}`)

const extractPrompt = "<s_docvqa><s_question>" +
	"You are an intelligent form-understanding AI agent trained to interpret medical and administrative documents. " +
	"Your goal is to extract all structured information visible on the form, including both printed text and handwritten or checkbox inputs. " +
	"For every field label (like 'Therapy Type', 'Diagnosis', 'Provider', etc.), identify its corresponding value. " +
	"If a checkbox or handwritten tick mark is visibly selected next to an option, treat that option as the field's value. " +
	"Do not ignore handwritten or ticked responses — they are the true answers for that field. " +
	"Ignore empty boxes or unchecked fields. " +
	"Return your output as a valid JSON object using clear key-value pairs, where keys are the field names and values are the detected answers. " +
	"If a field has multiple checked boxes, return them as a list of selected values. " +
	"Example output:\n" +
	"{\n" +
	`  "Form Type": "Prior Authorization",` + "\n" +
	`  "Patient Name": "Jane Doe",` + "\n" +
	`  "Therapy Type": "Occupational Therapy",` + "\n" +
	`  "Diagnosis": "Salter-Harris Type",` + "\n" +
	`  "Services": ["Outpatient", "Home Health"]` + "\n" +
	"}\n" +
	"Now analyze the uploaded form carefully and return only the extracted JSON, nothing else." +
	"</s_question><s_answer>"

// ExtractFormData asks the model for a structured field/checkbox mapping.
// Unparseable output is wrapped as {"raw_text": cleaned} rather than failing;
// an unavailable or failing model yields an empty map.
func (c *Client) ExtractFormData(ctx context.Context, imagePath string) map[string]any {
	raw, err := c.generate(ctx, imagePath, extractPrompt, 256)
	if err != nil {
		c.logger.Warn("vision.extract_failed", "error", err)
		return map[string]any{}
	}

	cleaned := stripMarkup(raw)
	if m := reJSONObject.FindString(cleaned); m != "" {
		var out map[string]any
		if err := json.Unmarshal([]byte(m), &out); err == nil {
			return out
		}
	}
	return map[string]any{"raw_text": cleaned}
}
