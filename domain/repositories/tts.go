package repositories

import "context"

// TextToSpeech abstracts the synthesis backend used by the dev
// emulator. Audio arrives as a channel of PCM16 chunks so playback can
// start before synthesis finishes.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
}
