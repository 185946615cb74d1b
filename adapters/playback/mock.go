package playback

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
)

// MockSink discards audio while recording what was played. Useful for
// running the client without audio hardware and in tests.
type MockSink struct {
	logger *zap.Logger

	mu         sync.Mutex
	connected  bool
	Played     [][]byte
	Speakers   []repositories.Speaker
	Interrupts int
}

// NewMockSink creates a sink that swallows audio.
func NewMockSink(logger *zap.Logger) *MockSink {
	return &MockSink{logger: logger}
}

func (s *MockSink) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.logger.Info("Mock audio output connected")
	return nil
}

func (s *MockSink) Play(speaker repositories.Speaker, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errors.New("sink not connected")
	}
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.Played = append(s.Played, buf)
	s.Speakers = append(s.Speakers, speaker)
	return nil
}

func (s *MockSink) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interrupts++
	return nil
}

func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.logger.Info("Mock audio output closed")
	return nil
}
