// Package capture provides microphone audio sources.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
)

const framesPerBuffer = 1024

// PortAudioCapture captures mono float32 frames from the default
// input device and delivers them through the registered callback.
type PortAudioCapture struct {
	logger     *zap.Logger
	sampleRate int

	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
}

// NewPortAudioCapture creates a capture source for the given sample rate.
func NewPortAudioCapture(logger *zap.Logger, sampleRate int) *PortAudioCapture {
	return &PortAudioCapture{
		logger:     logger,
		sampleRate: sampleRate,
	}
}

// Begin initializes the audio backend, opens the default input device
// and starts delivering frames to fn from the device callback. The
// callback runs on the audio thread, so fn must not block.
func (c *PortAudioCapture) Begin(ctx context.Context, fn repositories.FrameFunc) error {
	if fn == nil {
		return errors.New("frame callback cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return errors.New("capture already begun")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), framesPerBuffer, func(in []float32) {
		frame := make([]float32, len(in))
		copy(frame, in)
		fn(frame)
	})
	if err != nil {
		if termErr := portaudio.Terminate(); termErr != nil {
			c.logger.Warn("Failed to terminate audio backend", zap.Error(termErr))
		}
		return fmt.Errorf("failed to open input device: %w", err)
	}

	if err := stream.Start(); err != nil {
		if closeErr := stream.Close(); closeErr != nil {
			c.logger.Warn("Failed to close input stream", zap.Error(closeErr))
		}
		if termErr := portaudio.Terminate(); termErr != nil {
			c.logger.Warn("Failed to terminate audio backend", zap.Error(termErr))
		}
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	c.stream = stream
	c.started = true
	c.logger.Info("Microphone capture started",
		zap.Int("sample_rate", c.sampleRate),
		zap.Int("frames_per_buffer", framesPerBuffer),
	)
	return nil
}

// End stops the stream, closes the device and releases the audio
// backend. Safe to call when capture never began.
func (c *PortAudioCapture) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	var firstErr error
	if c.started {
		if err := c.stream.Stop(); err != nil {
			firstErr = fmt.Errorf("failed to stop input stream: %w", err)
		}
		c.started = false
	}
	if err := c.stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close input stream: %w", err)
	}
	c.stream = nil

	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to terminate audio backend: %w", err)
	}

	c.logger.Info("Microphone capture ended")
	return firstErr
}

// Pause stops frame delivery but keeps the device open. Used as a
// fallback when a full End fails.
func (c *PortAudioCapture) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil || !c.started {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to pause input stream: %w", err)
	}
	c.started = false
	c.logger.Info("Microphone capture paused")
	return nil
}
