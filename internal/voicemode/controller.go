// Package voicemode holds the state the UI layer binds to for the
// realtime voice feature: availability, connecting and listening
// flags, and the start/stop surface. All hard work is delegated to the
// transport session; transcripts fold into the chat store.
package voicemode

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/entities"
	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/auth"
	"github.com/adiwarman/lantun/internal/realtime"
)

var (
	// ErrAlreadyListening rejects a start while a session is
	// connecting or running; only one voice session exists at a time.
	ErrAlreadyListening = errors.New("voice mode already active")
	// ErrUnavailable rejects a start when no service endpoint is
	// configured.
	ErrUnavailable = errors.New("voice mode not configured")
	// ErrTokenExpired rejects a start when the configured session token
	// has already expired; the handshake would only fail later.
	ErrTokenExpired = errors.New("session token expired")
)

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	// NoticeMissingCredential asks the user to configure credentials.
	NoticeMissingCredential NoticeKind = "missing_credential"
	// NoticeSessionFailure covers device and connection failures.
	NoticeSessionFailure NoticeKind = "session_failure"
)

// Notice is a user-facing notification the UI layer renders.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// NotifyFunc delivers a notice to the UI layer.
type NotifyFunc func(Notice)

// VoiceSession is the slice of the transport session the controller
// drives.
type VoiceSession interface {
	Start(ctx context.Context, cfg realtime.SessionConfig) error
	Stop() error
	SetInstructions(text string)
	SetVoice(voice string)
}

// SessionFactory builds the controller's session with the
// controller's transcript callbacks wired in.
type SessionFactory func(cb realtime.Callbacks) VoiceSession

// Settings carry the configuration the controller seeds sessions
// with. Voice and Instructions may change at runtime through the
// setters; everything else is fixed at construction.
type Settings struct {
	// Available gates the whole feature; derived from configuration,
	// not from session state.
	Available    bool
	Voice        string
	Instructions string
	Tools        []json.RawMessage
	// Token is the service credential. When it is a JWT, its expiry is
	// checked before each start.
	Token string
}

// Controller owns the single voice session and the flags around it.
type Controller struct {
	session VoiceSession
	store   repositories.ChatStore
	notify  NotifyFunc
	logger  *zap.Logger

	// mu guards the flags and settings: the setters run on the UI
	// goroutine while Start reads settings, and session callbacks
	// arrive on the socket read goroutine.
	mu         sync.Mutex
	settings   Settings
	connecting bool
	listening  bool
}

// NewController wires the controller's transcript callbacks into a
// session built by factory. notify may be nil.
func NewController(
	factory SessionFactory,
	store repositories.ChatStore,
	settings Settings,
	notify NotifyFunc,
	logger *zap.Logger,
) *Controller {
	c := &Controller{
		store:    store,
		settings: settings,
		notify:   notify,
		logger:   logger,
	}
	c.session = factory(realtime.Callbacks{
		OnUserTranscript:      c.handleUserTranscript,
		OnAssistantTranscript: c.handleAssistantTranscript,
		OnDisconnect:          c.handleDisconnect,
	})
	return c
}

// Available reports whether voice mode is configured at all.
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Available
}

// Connecting reports whether a start is in flight.
func (c *Controller) Connecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting
}

// Listening reports whether a session is running.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Start opens a voice session seeded with the current chat history,
// tools, and instructions. On failure the user is notified, with
// credential problems distinguished from device or connection
// problems. The connecting flag always clears, whatever the outcome.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.settings.Available {
		c.mu.Unlock()
		return ErrUnavailable
	}
	if c.connecting || c.listening {
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	c.connecting = true
	settings := c.settings
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	// A token that is already expired makes the handshake a foregone
	// conclusion; surface the credential problem up front instead.
	if settings.Token != "" && auth.TokenExpired(settings.Token) {
		c.sendNotice(NoticeMissingCredential,
			"Voice mode credential has expired. Refresh your token configuration.")
		return ErrTokenExpired
	}

	cfg := realtime.SessionConfig{
		Voice:        settings.Voice,
		Instructions: settings.Instructions,
		Tools:        settings.Tools,
		Messages:     historyToWire(c.store.History()),
	}

	if err := c.session.Start(ctx, cfg); err != nil {
		// A failed session must be reset before the next attempt.
		c.session.Stop()
		c.notifyStartFailure(err)
		return err
	}

	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
	return nil
}

// Stop ends the session. Safe to call at any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.listening = false
	c.mu.Unlock()

	if err := c.session.Stop(); err != nil {
		c.logger.Warn("Failed to stop voice session", zap.Error(err))
	}
}

// SetInstructions forwards updated instructions to a running session.
func (c *Controller) SetInstructions(text string) {
	c.mu.Lock()
	c.settings.Instructions = text
	c.mu.Unlock()
	c.session.SetInstructions(text)
}

// SetVoice forwards a voice change to a running session.
func (c *Controller) SetVoice(voice string) {
	c.mu.Lock()
	c.settings.Voice = voice
	c.mu.Unlock()
	c.session.SetVoice(voice)
}

func (c *Controller) handleUserTranscript(raw string) {
	text, ok := ResolveTranscriptText(raw)
	if !ok {
		return
	}
	c.store.AddMessage(entities.NewMessage(entities.RoleUser, text))
}

func (c *Controller) handleAssistantTranscript(raw string) {
	text, ok := ResolveTranscriptText(raw)
	if !ok {
		return
	}
	c.store.AddMessage(entities.NewMessage(entities.RoleAssistant, text))
}

// handleDisconnect reacts to a server-initiated close: release
// whatever the failed session still holds and surface the failure.
func (c *Controller) handleDisconnect(err error) {
	c.mu.Lock()
	c.listening = false
	c.mu.Unlock()

	if serr := c.session.Stop(); serr != nil {
		c.logger.Warn("Failed to release failed session", zap.Error(serr))
	}
	c.sendNotice(NoticeSessionFailure, "Voice connection lost.")
	c.logger.Warn("Voice session disconnected", zap.Error(err))
}

func (c *Controller) notifyStartFailure(err error) {
	if isAuthError(err) {
		c.sendNotice(NoticeMissingCredential,
			"Voice mode needs a valid service credential. Check your token configuration.")
		return
	}
	c.sendNotice(NoticeSessionFailure,
		"Could not start voice mode. Check microphone permissions and the service connection.")
}

func (c *Controller) sendNotice(kind NoticeKind, message string) {
	if c.notify == nil {
		return
	}
	c.notify(Notice{Kind: kind, Message: message})
}

// isAuthError sniffs the error text for an authorization signature.
// The transport surfaces handshake failures as opaque errors, so text
// inspection is all there is.
func isAuthError(err error) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "forbidden", "invalid token", "api key"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func historyToWire(history []entities.Message) []realtime.HistoryMessage {
	if len(history) == 0 {
		return nil
	}
	out := make([]realtime.HistoryMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, realtime.HistoryMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}
