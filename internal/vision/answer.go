package vision

import (
	"context"
	"strings"
	"unicode"
)

// therapyCanon maps detected mentions of known therapy-type phrases to their
// canonical form; an exact phrase match wins over the raw decoded text.
var therapyCanon = []string{
	"Physical Therapy",
	"Occupational Therapy",
	"Speech Therapy",
	"Cardiac Rehab",
}

// genericPlaceholders are answers the model emits when it has nothing better;
// they carry no information and are discarded.
var genericPlaceholders = map[string]struct{}{
	"patient information": {},
	"information":         {},
	"form":                {},
	"document":            {},
}

// Answer asks the model a free-form question about the form image and returns
// the cleaned literal value, or "" when the model is unavailable, fails, or
// produces only a generic placeholder.
func (c *Client) Answer(ctx context.Context, imagePath, question string) string {
	prompt := "<s_docvqa><s_question>" + strings.TrimSpace(question) + "? " +
		"Answer directly with the exact field, checkbox, or handwritten value seen on the form. " +
		"Do not repeat the question or include any unrelated text.</s_question><s_answer>"

	raw, err := c.generate(ctx, imagePath, prompt, 64)
	if err != nil {
		c.logger.Warn("vision.answer_failed", "error", err)
		return ""
	}

	result := stripMarkup(raw)
	result = strings.TrimSpace(strings.ReplaceAll(result, question, ""))
	result = strings.TrimSpace(strings.TrimPrefix(result, "Answer:"))

	// Tidy up bare numeric fragments ("12/01:" and the like).
	if len(strings.Fields(result)) < 2 && !containsLetter(result) {
		result = capitalize(strings.Trim(result, ":;,. "))
	}

	for _, t := range therapyCanon {
		if strings.Contains(strings.ToLower(result), strings.ToLower(t)) {
			return t
		}
	}

	if _, generic := genericPlaceholders[strings.ToLower(result)]; generic {
		return ""
	}
	return result
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
