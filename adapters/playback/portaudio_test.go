package playback

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/adiwarman/lantun/domain/repositories"
)

func TestFillDrainsQueueAndPadsSilence(t *testing.T) {
	s := NewPortAudioSink(zaptest.NewLogger(t), 24000)
	s.pending = []int16{32767, -32768, 0}

	out := make([]float32, 5)
	s.fill(out)

	if out[0] < 0.99 {
		t.Errorf("out[0] = %v, want close to 1.0", out[0])
	}
	if out[1] != -1.0 {
		t.Errorf("out[1] = %v, want -1.0", out[1])
	}
	for i := 2; i < 5; i++ {
		if out[i] != 0 {
			t.Errorf("out[%d] = %v, want silence", i, out[i])
		}
	}
	if len(s.pending) != 0 {
		t.Errorf("expected pending queue drained, %d samples left", len(s.pending))
	}
}

func TestFillLeavesRemainderQueued(t *testing.T) {
	s := NewPortAudioSink(zaptest.NewLogger(t), 24000)
	s.pending = make([]int16, 10)

	s.fill(make([]float32, 4))

	if len(s.pending) != 6 {
		t.Errorf("pending = %d samples, want 6", len(s.pending))
	}
}

func TestInterruptFlushesQueue(t *testing.T) {
	s := NewPortAudioSink(zaptest.NewLogger(t), 24000)
	s.pending = make([]int16, 100)

	s.Interrupt()

	if len(s.pending) != 0 {
		t.Errorf("expected empty queue after interrupt, got %d samples", len(s.pending))
	}
}

func TestMockSinkRecordsPlayback(t *testing.T) {
	s := NewMockSink(zaptest.NewLogger(t))
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := s.Play(repositories.SpeakerAssistant, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	s.Interrupt()
	s.Close()

	if len(s.Played) != 1 || s.Interrupts != 1 {
		t.Errorf("played=%d interrupts=%d, want 1 and 1", len(s.Played), s.Interrupts)
	}
	if s.Speakers[0] != repositories.SpeakerAssistant {
		t.Errorf("speaker = %v, want assistant", s.Speakers[0])
	}

	if err := s.Play(repositories.SpeakerAssistant, []byte{5, 6}); err == nil {
		t.Error("expected error playing after close")
	}
	if len(s.Played) != 1 {
		t.Errorf("expected play after close to be dropped, got %d chunks", len(s.Played))
	}
}
