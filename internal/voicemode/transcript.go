package voicemode

import (
	"encoding/json"
	"strings"
)

// ResolveTranscriptText normalizes a transcript payload to plain text.
// Payloads arrive in three shapes: plain text, JSON-encoded text, or
// an object carrying a text field. Resolution tries a JSON parse when
// the trimmed payload looks encoded, prefers a text field, accepts a
// parsed string, and otherwise falls back to the original. A resolved
// value that is itself still an object with a text field is unwrapped
// once more. Returns false for anything empty after trimming.
func ResolveTranscriptText(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, `"`) {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			switch v := parsed.(type) {
			case map[string]any:
				if field, ok := v["text"]; ok {
					text = unwrapText(field, text)
				}
			case string:
				text = v
			}
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// unwrapText handles the second stage: the text field may hold the
// string directly or one more object wrapping it.
func unwrapText(v any, fallback string) string {
	switch field := v.(type) {
	case string:
		return field
	case map[string]any:
		if inner, ok := field["text"].(string); ok {
			return inner
		}
	}
	return fallback
}
