// Package tts provides speech synthesis backends for the voice
// service.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID   = "21m00Tcm4TlvDq8ikWAM"
	defaultModelID   = "eleven_multilingual_v2"
	defaultChunkSize = 4096

	// Raw PCM16 at 24 kHz so the output can feed the realtime wire
	// format without resampling.
	outputFormat = "pcm_24000"
)

// ElevenLabsConfig configures the ElevenLabs synthesizer. Only APIKey
// is required.
type ElevenLabsConfig struct {
	APIKey    string
	BaseURL   string
	VoiceID   string
	ModelID   string
	ChunkSize int
}

// ElevenLabsTTS synthesizes speech with the ElevenLabs streaming API.
type ElevenLabsTTS struct {
	config ElevenLabsConfig
	client *http.Client
	logger *zap.Logger
}

// NewElevenLabsTTS creates an ElevenLabs synthesizer.
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.VoiceID == "" {
		config.VoiceID = defaultVoiceID
	}
	if config.ModelID == "" {
		config.ModelID = defaultModelID
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}

	return &ElevenLabsTTS{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// ConvertTextToSpeech streams synthesized PCM16 audio for text. The
// returned channel closes when synthesis finishes or fails.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: e.config.ModelID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s",
		e.config.BaseURL, e.config.VoiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")
	req.Header.Set("xi-api-key", e.config.APIKey)

	out := make(chan []byte, 8)
	go func() {
		defer close(out)

		resp, err := e.client.Do(req)
		if err != nil {
			e.logger.Error("Synthesis request failed", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			e.logger.Error("Synthesis request rejected",
				zap.Int("status", resp.StatusCode),
				zap.String("detail", string(detail)),
			)
			return
		}

		buf := make([]byte, e.config.ChunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				e.logger.Error("Failed to read synthesis stream", zap.Error(err))
				return
			}
		}
	}()
	return out, nil
}
