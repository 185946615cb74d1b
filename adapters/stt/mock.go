package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
)

// MockSpeechToText fabricates transcripts from the amount of audio it
// receives. It lets the voice service run without cloud credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a recognizer that never touches the
// network.
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

func (m *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	m.logger.Debug("Opened mock recognition session",
		zap.Int("sample_rate", config.SampleRate),
		zap.String("language", config.Language),
	)
	return &mockStream{logger: m.logger}, nil
}

type mockStream struct {
	logger *zap.Logger
	total  int
}

func (m *mockStream) Stream(data []byte) error {
	m.total += len(data)
	return nil
}

func (m *mockStream) End() (string, error) {
	if m.total == 0 {
		return "", fmt.Errorf("no audio was streamed")
	}

	var transcript string
	switch {
	case m.total > 96000:
		transcript = "Could you translate that last paragraph into Indonesian for me?"
	case m.total > 48000:
		transcript = "What does this phrase mean?"
	default:
		transcript = "Hello there."
	}
	m.logger.Debug("Mock recognition finished",
		zap.Int("bytes", m.total),
		zap.String("transcript", transcript),
	)
	return transcript, nil
}
