// Package playback provides audio output sinks.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/codec"
)

const framesPerBuffer = 1024

// PortAudioSink plays PCM16 audio on the default output device.
// Play enqueues samples and returns immediately; the device callback
// drains the queue, filling silence when it runs dry.
type PortAudioSink struct {
	logger     *zap.Logger
	sampleRate int

	mu      sync.Mutex
	stream  *portaudio.Stream
	pending []int16
}

// NewPortAudioSink creates a sink for the given sample rate.
func NewPortAudioSink(logger *zap.Logger, sampleRate int) *PortAudioSink {
	return &PortAudioSink{
		logger:     logger,
		sampleRate: sampleRate,
	}
}

// Connect initializes the audio backend and starts the output stream.
func (s *PortAudioSink) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return errors.New("sink already connected")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.sampleRate), framesPerBuffer, s.fill)
	if err != nil {
		if termErr := portaudio.Terminate(); termErr != nil {
			s.logger.Warn("Failed to terminate audio backend", zap.Error(termErr))
		}
		return fmt.Errorf("failed to open output device: %w", err)
	}
	if err := stream.Start(); err != nil {
		if closeErr := stream.Close(); closeErr != nil {
			s.logger.Warn("Failed to close output stream", zap.Error(closeErr))
		}
		if termErr := portaudio.Terminate(); termErr != nil {
			s.logger.Warn("Failed to terminate audio backend", zap.Error(termErr))
		}
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	s.stream = stream
	s.logger.Info("Audio output connected", zap.Int("sample_rate", s.sampleRate))
	return nil
}

// fill runs on the audio thread and drains the pending queue into the
// device buffer.
func (s *PortAudioSink) fill(out []float32) {
	s.mu.Lock()
	queued := s.pending
	take := len(out)
	if take > len(queued) {
		take = len(queued)
	}
	chunk := queued[:take]
	s.pending = queued[take:]
	s.mu.Unlock()

	for i := range out {
		if i < len(chunk) {
			out[i] = float32(chunk[i]) / 32768
		} else {
			out[i] = 0
		}
	}
}

// Play enqueues a PCM16 little-endian chunk for playback.
func (s *PortAudioSink) Play(speaker repositories.Speaker, pcm []byte) error {
	samples := codec.PCM16ToInt16(pcm)
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return errors.New("sink not connected")
	}
	s.pending = append(s.pending, samples...)
	return nil
}

// Interrupt discards any queued audio so playback stops at the next
// device buffer.
func (s *PortAudioSink) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

// Close stops the output stream and releases the audio backend.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.pending = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	var firstErr error
	if err := stream.Stop(); err != nil {
		firstErr = fmt.Errorf("failed to stop output stream: %w", err)
	}
	if err := stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close output stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to terminate audio backend: %w", err)
	}
	s.logger.Info("Audio output closed")
	return firstErr
}
