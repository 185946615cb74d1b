package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestElevenLabsRequiresAPIKey(t *testing.T) {
	if _, err := NewElevenLabsTTS(ElevenLabsConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error without API key")
	}
}

func TestElevenLabsStreamsAudio(t *testing.T) {
	audio := make([]byte, 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_24000" {
			t.Errorf("output_format = %q", got)
		}
		w.Write(audio)
	}))
	defer srv.Close()

	e, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		ChunkSize: 1024,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabsTTS failed: %v", err)
	}

	ch, err := e.ConvertTextToSpeech(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	var total int
	for chunk := range ch {
		total += len(chunk)
	}
	if total != len(audio) {
		t.Errorf("received %d bytes, want %d", total, len(audio))
	}
}

func TestElevenLabsClosesChannelOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "bad", BaseURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabsTTS failed: %v", err)
	}

	ch, err := e.ConvertTextToSpeech(context.Background(), "hello")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}
	for range ch {
		t.Error("expected no audio on API error")
	}
}

func TestElevenLabsRejectsEmptyText(t *testing.T) {
	e, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabsTTS failed: %v", err)
	}
	if _, err := e.ConvertTextToSpeech(context.Background(), ""); err == nil {
		t.Error("expected error for empty text")
	}
}
