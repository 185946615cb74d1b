package repositories

import "context"

// Speaker tags a playback chunk with its logical source.
type Speaker string

// SpeakerAssistant tags synthesized assistant speech.
const SpeakerAssistant Speaker = "assistant"

// AudioSink abstracts the output device. Chunks play in arrival order;
// Interrupt flushes whatever is still queued.
type AudioSink interface {
	// Connect opens the output device.
	Connect(ctx context.Context) error
	// Play enqueues one PCM16 chunk for playback.
	Play(speaker Speaker, pcm []byte) error
	// Interrupt drops all queued audio immediately.
	Interrupt() error
	// Close releases the output device.
	Close() error
}
