// Package stt provides speech recognition backends for the voice
// service.
package stt

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
)

// GoogleSpeechToText recognizes speech with Google Cloud
// Speech-to-Text over a bidirectional stream.
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a Google Cloud recognizer. Credentials
// come from the usual GOOGLE_APPLICATION_CREDENTIALS discovery.
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

// InitTranscribeStreaming opens a streaming recognition session for a
// single utterance.
func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open recognize stream: %w", err)
	}

	encoding, err := resolveEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send recognition config: %w", err)
	}

	g.logger.Debug("Opened streaming recognition session",
		zap.Int("sample_rate", config.SampleRate),
		zap.String("language", config.Language),
	)

	s := &googleStream{
		client:  client,
		stream:  stream,
		ctx:     ctx,
		results: make(chan string, 1),
		errs:    make(chan error, 1),
	}
	go s.collect()
	return s, nil
}

type googleStream struct {
	client  *speech.Client
	stream  speechpb.Speech_StreamingRecognizeClient
	ctx     context.Context
	sent    bool
	results chan string
	errs    chan error
}

// Stream forwards an audio chunk to the recognizer.
func (s *googleStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.sent = true
	if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

// End closes the audio stream and waits for the final transcript.
func (s *googleStream) End() (string, error) {
	defer s.client.Close()

	if !s.sent {
		return "", fmt.Errorf("no audio was streamed")
	}
	if err := s.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close audio stream: %w", err)
	}

	select {
	case <-s.ctx.Done():
		return "", fmt.Errorf("recognition cancelled: %w", s.ctx.Err())
	case err := <-s.errs:
		return "", err
	case transcript := <-s.results:
		if transcript == "" {
			return "", fmt.Errorf("no speech detected")
		}
		return transcript, nil
	}
}

// collect drains recognition responses and keeps the last final
// transcript.
func (s *googleStream) collect() {
	var final string
	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			s.results <- final
			return
		}
		if err != nil {
			s.errs <- fmt.Errorf("failed to receive recognition result: %w", err)
			return
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				final = result.Alternatives[0].Transcript
			}
		}
	}
}

func resolveEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "LINEAR16", "pcm16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
