package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestMockCaptureDeliversFrames(t *testing.T) {
	c := NewMockCapture(zaptest.NewLogger(t), 24000)

	var mu sync.Mutex
	var frames int
	err := c.Begin(context.Background(), func(samples []float32) {
		if len(samples) != framesPerBuffer {
			t.Errorf("frame size = %d, want %d", len(samples), framesPerBuffer)
		}
		mu.Lock()
		frames++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := frames
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := c.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if frames == 0 {
		t.Error("no frames delivered")
	}
}

func TestMockCaptureEndIsIdempotent(t *testing.T) {
	c := NewMockCapture(zaptest.NewLogger(t), 24000)
	if err := c.Begin(context.Background(), func([]float32) {}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := c.End(); err != nil {
		t.Fatalf("first End failed: %v", err)
	}
	if err := c.End(); err != nil {
		t.Fatalf("second End failed: %v", err)
	}
}

func TestMockCapturePauseStopsDelivery(t *testing.T) {
	c := NewMockCapture(zaptest.NewLogger(t), 24000)

	var mu sync.Mutex
	var frames int
	if err := c.Begin(context.Background(), func([]float32) {
		mu.Lock()
		frames++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	mu.Lock()
	before := frames
	mu.Unlock()
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	after := frames
	mu.Unlock()

	// One tick may already be in flight when Pause lands.
	if after > before+1 {
		t.Errorf("frames kept arriving after pause: %d -> %d", before, after)
	}
	c.End()
}
