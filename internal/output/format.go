package output

import (
	"encoding/json"
	"fmt"
)

// Sanitizer is the redaction the printers depend on.
type Sanitizer interface {
	Sanitize(text string) string
}

// Render returns rec in the given format with every string redacted.
// JSON output is decoded and its string values sanitized one by one, so a
// redaction can never break the encoding.
func Render(rec Record, f Format, san Sanitizer) ([]byte, error) {
	if f == Text {
		return []byte(san.Sanitize(rec.Text())), nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("output: marshal %s: %w", rec.Kind(), err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("output: decode %s: %w", rec.Kind(), err)
	}
	out, err := json.MarshalIndent(SanitizeValue(v, san), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: marshal %s: %w", rec.Kind(), err)
	}
	return out, nil
}

// SanitizeValue redacts every string, including map keys, in a decoded
// JSON value.
func SanitizeValue(v any, san Sanitizer) any {
	switch x := v.(type) {
	case string:
		return san.Sanitize(x)
	case []any:
		for i := range x {
			x[i] = SanitizeValue(x[i], san)
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[san.Sanitize(k)] = SanitizeValue(val, san)
		}
		return out
	default:
		return v
	}
}
