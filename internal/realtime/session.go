// Package realtime implements the duplex voice streaming session: one
// persistent WebSocket to the speech service, exclusive ownership of
// the capture source and audio sink for the session's lifetime, and
// translation between capture frames, wire events, and playback.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/entities"
	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/codec"
)

// ErrSessionBusy is returned by Start when the session is not idle.
// The controller refuses to start twice, so hitting this means a
// caller bypassed it.
var ErrSessionBusy = errors.New("voice session already started")

const (
	// Time allowed to write a message to the service.
	writeWait = 10 * time.Second

	// Subprotocol negotiated with the service; the second token
	// carries the credential.
	protocolName = "realtime"
	tokenPrefix  = "lantun-token."
)

// Callbacks are invoked from the session's read goroutine as inbound
// events resolve. Handlers must not block.
type Callbacks struct {
	// OnUserTranscript receives recognized user speech.
	OnUserTranscript func(text string)
	// OnAssistantTranscript receives the transcript of a completed
	// assistant response.
	OnAssistantTranscript func(text string)
	// OnDisconnect fires when the service closes the socket while the
	// session is active. The session is already in the failed state;
	// there is no reconnect.
	OnDisconnect func(err error)
}

// Options configure the service endpoint.
type Options struct {
	// URL is the ws:// or wss:// endpoint of the realtime service.
	URL string
	// Model is appended to the endpoint as a query parameter.
	Model string
	// Token is declared as a subprotocol negotiation token at connect
	// time. Empty means no credential is offered.
	Token string
	// TranscriptionModel selects the recognizer for user audio.
	TranscriptionModel string
}

// Session owns exactly one socket, one capture handle, and one sink
// handle between Start and Stop. The active flag is the single gate
// every capture-frame and inbound-message callback checks before
// touching either; late data after a stop is dropped, never queued.
type Session struct {
	opts      Options
	capture   repositories.CaptureSource
	sink      repositories.AudioSink
	callbacks Callbacks
	logger    *zap.Logger

	active atomic.Bool

	// mu guards the lifecycle state and resource ownership. Ownership
	// flags clear before the releases run so a second Stop finds
	// nothing left to do.
	mu           sync.Mutex
	state        entities.SessionState
	conn         *websocket.Conn
	open         bool
	captureOwned bool
	sinkOwned    bool

	// writeMu serializes socket writes between the capture callback
	// and configuration updates.
	writeMu sync.Mutex
}

// NewSession creates an idle session. The capture source and sink are
// held for the session's lifetime but only acquired during Start.
func NewSession(
	opts Options,
	capture repositories.CaptureSource,
	sink repositories.AudioSink,
	callbacks Callbacks,
	logger *zap.Logger,
) *Session {
	return &Session{
		opts:      opts,
		capture:   capture,
		sink:      sink,
		callbacks: callbacks,
		state:     entities.SessionStateIdle,
		logger:    logger,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setStateLocked moves the lifecycle to next through the entity state
// machine. An edge the machine does not allow is logged and refused,
// leaving the state unchanged. Callers hold mu.
func (s *Session) setStateLocked(next entities.SessionState) {
	state, err := s.state.Transition(next)
	if err != nil {
		s.logger.Error("Rejected session state change", zap.Error(err))
		return
	}
	s.state = state
}

// Active reports whether audio is currently being forwarded.
func (s *Session) Active() bool {
	return s.active.Load()
}

// Start acquires the sink, the capture source, and the socket in that
// order, sends the session configuration, and begins forwarding audio.
// If any step fails, everything already acquired is released before
// the error returns and the session lands in the failed state; Stop
// resets it to idle.
//
// No handshake timeout is applied beyond what ctx carries: a hung
// handshake blocks Start until the caller cancels.
//
// Start and Stop must be serialized by the caller; the controller's
// connecting and listening flags do this. A Stop racing a Start that
// is mid-acquisition can observe the starting state as idle and
// return before the resources exist.
func (s *Session) Start(ctx context.Context, cfg SessionConfig) error {
	s.mu.Lock()
	if s.state != entities.SessionStateIdle {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.setStateLocked(entities.SessionStateStarting)
	s.mu.Unlock()

	if err := s.sink.Connect(ctx); err != nil {
		s.teardown(entities.SessionStateFailed)
		return fmt.Errorf("failed to open output device: %w", err)
	}
	s.mu.Lock()
	s.sinkOwned = true
	s.mu.Unlock()

	if err := s.capture.Begin(ctx, s.handleFrame); err != nil {
		s.teardown(entities.SessionStateFailed)
		return fmt.Errorf("failed to open microphone: %w", err)
	}
	s.mu.Lock()
	s.captureOwned = true
	s.mu.Unlock()

	endpoint, err := s.endpoint()
	if err != nil {
		s.teardown(entities.SessionStateFailed)
		return err
	}

	conn, _, err := s.dialer().DialContext(ctx, endpoint, nil)
	if err != nil {
		s.teardown(entities.SessionStateFailed)
		return fmt.Errorf("failed to open realtime socket: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.open = true
	s.mu.Unlock()

	cfg.InputAudioFormat = AudioFormat
	cfg.OutputAudioFormat = AudioFormat
	if cfg.InputAudioTranscription == nil && s.opts.TranscriptionModel != "" {
		cfg.InputAudioTranscription = &TranscriptionConfig{Model: s.opts.TranscriptionModel}
	}
	if err := s.writeEvent(conn, SessionUpdateEvent{Type: EventSessionUpdate, Session: cfg}); err != nil {
		s.teardown(entities.SessionStateFailed)
		return fmt.Errorf("failed to send session configuration: %w", err)
	}

	// Audio forwards only once the socket is configured.
	s.active.Store(true)
	s.mu.Lock()
	s.setStateLocked(entities.SessionStateActive)
	s.mu.Unlock()

	go s.readLoop(conn)

	s.logger.Info("Voice session active",
		zap.String("model", s.opts.Model),
		zap.String("voice", cfg.Voice))
	return nil
}

// Stop tears the session down from any state. Safe to call before
// Start, after a failure, and repeatedly. Ordering matters: the active
// flag drops first so in-flight callbacks go quiet, then capture,
// socket, sink. Each step tolerates its own failure.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == entities.SessionStateIdle {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(entities.SessionStateStopping)
	s.mu.Unlock()

	s.teardown(entities.SessionStateIdle)
	s.logger.Info("Voice session stopped")
	return nil
}

// SetInstructions sends updated system instructions. Fire-and-forget;
// warns and does nothing when the socket is not open.
func (s *Session) SetInstructions(text string) {
	s.sendSessionPatch(SessionConfig{Instructions: text})
}

// SetVoice switches the synthesis voice. Fire-and-forget; warns and
// does nothing when the socket is not open.
func (s *Session) SetVoice(voice string) {
	s.sendSessionPatch(SessionConfig{Voice: voice})
}

func (s *Session) sendSessionPatch(cfg SessionConfig) {
	s.mu.Lock()
	conn, open := s.conn, s.open
	s.mu.Unlock()
	if conn == nil || !open {
		s.logger.Warn("Session update skipped; socket not open")
		return
	}
	if err := s.writeEvent(conn, SessionUpdateEvent{Type: EventSessionUpdate, Session: cfg}); err != nil {
		s.logger.Warn("Failed to send session update", zap.Error(err))
	}
}

// teardown releases whatever the session currently owns and moves to
// next. Best-effort and total: every step runs regardless of earlier
// failures.
func (s *Session) teardown(next entities.SessionState) {
	s.active.Store(false)

	s.mu.Lock()
	conn, open := s.conn, s.open
	captureOwned, sinkOwned := s.captureOwned, s.sinkOwned
	s.conn = nil
	s.open = false
	s.captureOwned = false
	s.sinkOwned = false
	s.mu.Unlock()

	if captureOwned {
		if err := s.capture.End(); err != nil {
			s.logger.Warn("Failed to end capture; pausing instead", zap.Error(err))
			if perr := s.capture.Pause(); perr != nil {
				s.logger.Warn("Failed to pause capture", zap.Error(perr))
			}
		}
	}

	if conn != nil {
		if open {
			deadline := time.Now().Add(writeWait)
			s.writeMu.Lock()
			if err := conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil {
				s.logger.Debug("Failed to send close frame", zap.Error(err))
			}
			s.writeMu.Unlock()
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close socket", zap.Error(err))
		}
	}

	if sinkOwned {
		if err := s.sink.Interrupt(); err != nil {
			s.logger.Warn("Failed to interrupt playback", zap.Error(err))
		}
		if err := s.sink.Close(); err != nil {
			s.logger.Warn("Failed to close output device", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.setStateLocked(next)
	s.mu.Unlock()
}

// handleFrame forwards one capture frame to the service. Frames that
// arrive while inactive, or while the socket is not open, are dropped:
// realtime audio cannot be queued without going stale.
func (s *Session) handleFrame(samples []float32) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	conn, open := s.conn, s.open
	s.mu.Unlock()
	if conn == nil || !open {
		return
	}

	pcm := codec.Float32ToPCM16(samples)
	if err := s.writeEvent(conn, AudioAppendEvent{
		Type:  EventAudioAppend,
		Audio: codec.PCM16ToBase64(pcm),
	}); err != nil {
		s.logger.Debug("Dropping capture frame; write failed", zap.Error(err))
	}
}

// readLoop is the sole socket reader. It exits when the socket closes,
// either from our own teardown or from the service side.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleSocketClosed(err)
			return
		}
		s.dispatch(data)
	}
}

// handleSocketClosed distinguishes our own teardown from a
// server-initiated close. The latter is terminal for the session.
func (s *Session) handleSocketClosed(err error) {
	if !s.active.CompareAndSwap(true, false) {
		// Teardown already in progress; this is the expected unblock.
		return
	}

	s.mu.Lock()
	s.open = false
	s.setStateLocked(entities.SessionStateFailed)
	s.mu.Unlock()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Warn("Realtime socket closed by service", zap.Error(err))
	} else {
		s.logger.Info("Realtime socket closed", zap.Error(err))
	}

	if s.callbacks.OnDisconnect != nil {
		s.callbacks.OnDisconnect(err)
	}
}

// dispatch handles one inbound wire message. Each message stands
// alone; a malformed one is logged and dropped without affecting the
// stream.
func (s *Session) dispatch(data []byte) {
	if !s.active.Load() {
		// Late message racing a stop; drop rather than queue.
		return
	}

	var evt ServerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		s.logger.Debug("Dropping unparseable event", zap.Error(err))
		return
	}

	switch evt.Type {
	case EventAudioDelta:
		if evt.Delta == "" {
			return
		}
		pcm, err := codec.Base64ToPCM16(evt.Delta)
		if err != nil {
			s.logger.Warn("Dropping malformed audio delta", zap.Error(err))
			return
		}
		if err := s.sink.Play(repositories.SpeakerAssistant, pcm); err != nil {
			s.logger.Warn("Failed to enqueue playback chunk", zap.Error(err))
		}

	case EventTranscriptionCompleted:
		text := strings.TrimSpace(evt.Transcript)
		if text != "" && s.callbacks.OnUserTranscript != nil {
			s.callbacks.OnUserTranscript(text)
		}

	case EventResponseDone:
		text := strings.TrimSpace(evt.Response.FirstTranscript())
		if text != "" && s.callbacks.OnAssistantTranscript != nil {
			s.callbacks.OnAssistantTranscript(text)
		}

	case EventError:
		// Non-fatal on its own; a socket close following it drives the
		// state machine instead.
		s.logger.Warn("Service reported error", zap.ByteString("detail", evt.Error))

	default:
		// Unrecognized types are ignored for forward compatibility.
	}
}

func (s *Session) writeEvent(conn *websocket.Conn, evt any) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) endpoint() (string, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid service URL %q: %w", s.opts.URL, err)
	}
	if s.opts.Model != "" {
		q := u.Query()
		q.Set("model", s.opts.Model)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Session) dialer() *websocket.Dialer {
	subprotocols := []string{protocolName}
	if s.opts.Token != "" {
		subprotocols = append(subprotocols, tokenPrefix+s.opts.Token)
	}
	// No HandshakeTimeout: cancellation comes from the Start context
	// alone.
	return &websocket.Dialer{Subprotocols: subprotocols}
}
