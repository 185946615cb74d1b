package voicemode

import "testing"

func TestResolveTranscriptText(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain text", "hello", "hello", true},
		{"padded plain text", "  hello  ", "hello", true},
		{"object with text field", `{"text":"hello"}`, "hello", true},
		{"json encoded string", `"hello"`, "hello", true},
		{"nested text object", `{"text":{"text":"hello"}}`, "hello", true},
		{"object without text field", `{"note":"hi"}`, `{"note":"hi"}`, true},
		{"object with non-string text", `{"text":42}`, `{"text":42}`, true},
		{"malformed json falls back", `{"text":`, `{"text":`, true},
		{"empty", "", "", false},
		{"whitespace only", "   \t\n", "", false},
		{"object resolving to whitespace", `{"text":"   "}`, "", false},
		{"json encoded empty string", `""`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveTranscriptText(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ResolveTranscriptText(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveTranscriptText(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
