package tts

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/internal/codec"
)

const (
	toneSampleRate = 24000
	toneFrequency  = 440.0
	toneAmplitude  = 0.2
	toneChunkBytes = 4096

	// Playback duration scales with the text so longer replies sound
	// longer, clamped to keep tests and demos quick.
	msPerCharacter = 60
	minDurationMs  = 300
	maxDurationMs  = 4000
)

// ToneTTS synthesizes a fixed sine tone whose length tracks the text.
// It stands in for a real synthesizer when no API key is configured.
type ToneTTS struct {
	logger *zap.Logger
}

// NewToneTTS creates the fallback synthesizer.
func NewToneTTS(logger *zap.Logger) *ToneTTS {
	return &ToneTTS{logger: logger}
}

func (t *ToneTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	durationMs := len(text) * msPerCharacter
	if durationMs < minDurationMs {
		durationMs = minDurationMs
	}
	if durationMs > maxDurationMs {
		durationMs = maxDurationMs
	}
	totalSamples := toneSampleRate * durationMs / 1000

	samples := make([]int16, totalSamples)
	step := 2 * math.Pi * toneFrequency / toneSampleRate
	for i := range samples {
		// Fade in and out over 10ms to avoid clicks.
		gain := envelope(i, totalSamples)
		samples[i] = int16(toneAmplitude * gain * 32767 * math.Sin(step*float64(i)))
	}
	pcm := codec.Int16ToPCM16(samples)

	t.logger.Debug("Synthesizing tone",
		zap.Int("duration_ms", durationMs),
		zap.Int("bytes", len(pcm)),
	)

	out := make(chan []byte, 8)
	go func() {
		defer close(out)
		for off := 0; off < len(pcm); off += toneChunkBytes {
			end := off + toneChunkBytes
			if end > len(pcm) {
				end = len(pcm)
			}
			select {
			case out <- pcm[off:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func envelope(i, total int) float64 {
	const ramp = toneSampleRate / 100
	switch {
	case i < ramp:
		return float64(i) / ramp
	case i > total-ramp:
		return float64(total-i) / ramp
	default:
		return 1
	}
}
