package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Field is one label/value pair recognized on a form. Values are strings or
// lists of strings (multi-value fields such as multiple diagnoses).
type Field struct {
	Label string
	Value any
}

// Fields is an ordered label→value mapping. Labels are unique within one
// document; order is the order the model emitted them, which downstream
// consumers (the summary fallback) rely on.
type Fields []Field

func (fs Fields) Len() int { return len(fs) }

func (fs Fields) Get(label string) (any, bool) {
	for _, f := range fs {
		if f.Label == label {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON emits a JSON object preserving field order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Label)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		v, err := marshalValue(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	if nested, ok := v.(Fields); ok {
		return nested.MarshalJSON()
	}
	return json.Marshal(v)
}

// FormFields is the extractor's guaranteed output shape.
type FormFields struct {
	FormType string
	Fields   Fields
	// RawText carries the model's unparseable response when JSON repair
	// failed; it is data, not an error.
	RawText string
}

func (ff FormFields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"form_type":`)
	ft, err := json.Marshal(ff.FormType)
	if err != nil {
		return nil, err
	}
	b.Write(ft)
	b.WriteString(`,"fields":`)
	fl, err := ff.Fields.MarshalJSON()
	if err != nil {
		return nil, err
	}
	b.Write(fl)
	if ff.RawText != "" {
		b.WriteString(`,"raw_text":`)
		rt, err := json.Marshal(ff.RawText)
		if err != nil {
			return nil, err
		}
		b.Write(rt)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ParseOrderedObject decodes a JSON object keeping key order. Nested objects
// decode to Fields, arrays to []any, numbers to json.Number.
func ParseOrderedObject(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}
	return parseObject(dec)
}

func parseObject(dec *json.Decoder) (Fields, error) {
	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Label: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	return out, nil
}

func parseValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return tok, nil
	}
}

// titleCase capitalizes the first letter of each word and lowercases the
// rest, matching the label style used when flattening nested objects.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
