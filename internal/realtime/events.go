package realtime

import "encoding/json"

// Wire event types. Outbound events are client -> service, inbound are
// service -> client. Unknown inbound types are ignored so newer
// services keep working against older clients.
const (
	EventSessionUpdate          = "session.update"
	EventAudioAppend            = "input_audio_buffer.append"
	EventAudioDelta             = "response.audio.delta"
	EventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventResponseDone           = "response.done"
	EventError                  = "error"
)

// Audio format constants shared by both directions of the stream.
const (
	SampleRate  = 24000
	AudioFormat = "pcm16"
)

// TranscriptionConfig selects the recognition model applied to
// captured user audio.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// HistoryMessage is one prior chat message forwarded as session
// context.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionConfig is the session-configuration payload. Start fills the
// audio formats; callers provide the rest. Tools are forwarded
// untouched.
type SessionConfig struct {
	Voice                   string               `json:"voice,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	Messages                []HistoryMessage     `json:"messages,omitempty"`
	Tools                   []json.RawMessage    `json:"tools,omitempty"`
}

// SessionUpdateEvent configures or reconfigures the service session.
type SessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// AudioAppendEvent carries one base64 PCM16 capture frame.
type AudioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// ServerEvent is the inbound envelope. The type field discriminates;
// only the fields relevant to that type are populated.
type ServerEvent struct {
	Type       string          `json:"type"`
	Delta      string          `json:"delta,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Response   *Response       `json:"response,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`
}

// Response aggregates one full model response, delivered on
// response.done.
type Response struct {
	Output []ResponseOutput `json:"output"`
}

// ResponseOutput is one output item of a response.
type ResponseOutput struct {
	Content []ResponseContent `json:"content"`
}

// ResponseContent is one content block of an output item.
type ResponseContent struct {
	Transcript string `json:"transcript,omitempty"`
}

// FirstTranscript returns the first output item's first content
// block's transcript, or empty when the response carries none.
func (r *Response) FirstTranscript() string {
	if r == nil || len(r.Output) == 0 || len(r.Output[0].Content) == 0 {
		return ""
	}
	return r.Output[0].Content[0].Transcript
}
