// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultModel              = "gpt-4o-realtime-preview"
	DefaultTranscriptionModel = "whisper-1"
	DefaultVoice              = "alloy"
)

// Config holds everything the voice client needs to reach the
// realtime service.
type Config struct {
	// ServiceURL is the ws:// or wss:// realtime endpoint. Empty means
	// voice mode is unavailable.
	ServiceURL string
	// Model is carried as a query parameter on the endpoint.
	Model string
	// TranscriptionModel selects the recognizer for user audio.
	TranscriptionModel string
	// Token is the credential offered during subprotocol negotiation.
	Token string
	// Voice selects the synthesis voice.
	Voice string
	// Instructions seed the session's system instructions.
	Instructions string
}

// FromEnv reads configuration from LANTUN_* environment variables.
func FromEnv() Config {
	cfg := Config{
		ServiceURL:         os.Getenv("LANTUN_SERVICE_URL"),
		Model:              os.Getenv("LANTUN_MODEL"),
		TranscriptionModel: os.Getenv("LANTUN_TRANSCRIPTION_MODEL"),
		Token:              os.Getenv("LANTUN_TOKEN"),
		Voice:              os.Getenv("LANTUN_VOICE"),
		Instructions:       os.Getenv("LANTUN_INSTRUCTIONS"),
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return cfg
}

// Available reports whether an endpoint is configured.
func (c Config) Available() bool {
	return c.ServiceURL != ""
}

// Validate checks the endpoint shape. An empty endpoint is valid: it
// just disables voice mode.
func (c Config) Validate() error {
	if c.ServiceURL == "" {
		return nil
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil {
		return fmt.Errorf("invalid LANTUN_SERVICE_URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("LANTUN_SERVICE_URL must use ws or wss scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("LANTUN_SERVICE_URL is missing a host")
	}
	return nil
}
