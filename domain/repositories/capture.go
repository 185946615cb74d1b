package repositories

import "context"

// FrameFunc receives one mono frame of float samples from the
// microphone. Implementations may reuse the slice between calls;
// consumers must not retain it.
type FrameFunc func(samples []float32)

// CaptureSource abstracts the microphone. Begin owns the hardware
// handle until End releases it.
type CaptureSource interface {
	// Begin opens the input device and starts delivering frames to fn.
	// Frames keep arriving until End or Pause.
	Begin(ctx context.Context, fn FrameFunc) error
	// End stops delivery and releases the device.
	End() error
	// Pause stops delivery without releasing the device. Used as the
	// degraded fallback when End itself fails mid-teardown.
	Pause() error
}
