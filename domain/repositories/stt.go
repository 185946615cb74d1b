package repositories

import "context"

// SpeechToText abstracts the recognition backend used by the dev
// emulator to transcribe audio the client streams in.
type SpeechToText interface {
	// InitTranscribeStreaming opens a streaming recognition session.
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig describes the PCM the recognizer will receive.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToTextStreaming accepts PCM chunks and yields one final
// transcript when the stream ends.
type SpeechToTextStreaming interface {
	Stream(data []byte) error
	End() (string, error)
}
