package capture

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
)

// MockCapture synthesizes a low sine tone instead of reading a real
// microphone. Useful for running the client without audio hardware.
type MockCapture struct {
	logger     *zap.Logger
	sampleRate int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	paused bool
}

// NewMockCapture creates a synthetic capture source.
func NewMockCapture(logger *zap.Logger, sampleRate int) *MockCapture {
	return &MockCapture{
		logger:     logger,
		sampleRate: sampleRate,
	}
}

// Begin starts a goroutine that delivers synthetic frames at roughly
// real-time pacing.
func (c *MockCapture) Begin(ctx context.Context, fn repositories.FrameFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.paused = false
	c.logger.Info("Mock capture started", zap.Int("sample_rate", c.sampleRate))

	go func() {
		defer close(done)

		interval := time.Duration(framesPerBuffer) * time.Second / time.Duration(c.sampleRate)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var phase float64
		step := 2 * math.Pi * 220 / float64(c.sampleRate)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				paused := c.paused
				c.mu.Unlock()
				if paused {
					continue
				}
				frame := make([]float32, framesPerBuffer)
				for i := range frame {
					frame[i] = float32(0.1 * math.Sin(phase))
					phase += step
				}
				fn(frame)
			}
		}
	}()
	return nil
}

// End stops the synthetic frame source.
func (c *MockCapture) End() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	c.logger.Info("Mock capture ended")
	return nil
}

// Pause suspends frame delivery without stopping the source.
func (c *MockCapture) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	return nil
}
