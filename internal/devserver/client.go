package devserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/entities"
	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/codec"
	"github.com/adiwarman/lantun/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Generous for base64
	// audio frames.
	maxMessageSize = 512 * 1024

	turnTimeout = 60 * time.Second
)

type writeData struct {
	messageType int
	payload     []byte
}

// client is one realtime connection. Audio frames accumulate into a
// turn buffer; when appends go quiet for the configured hold, the turn
// runs through recognition, the chat model and synthesis.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan writeData
	logger *zap.Logger

	mu        sync.Mutex
	session   realtime.SessionConfig
	seeded    bool
	history   []entities.Message
	buffer    []byte
	turnTimer *time.Timer
	closed    bool
}

func newClient(s *Server, conn *websocket.Conn, logger *zap.Logger) *client {
	return &client{
		server: s,
		conn:   conn,
		send:   make(chan writeData, 256),
		logger: logger,
	}
}

// inboundEvent covers every client event shape we accept.
type inboundEvent struct {
	Type    string                 `json:"type"`
	Session realtime.SessionConfig `json:"session"`
	Audio   string                 `json:"audio"`
}

func (c *client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("Websocket read failed", zap.Error(err))
			}
			return
		}
		c.handleEvent(message)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(message.messageType, message.payload); err != nil {
				c.logger.Error("Websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shutdown stops the turn timer and closes the outbound channel so the
// write pump drains and closes the socket.
func (c *client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.turnTimer != nil {
		c.turnTimer.Stop()
		c.turnTimer = nil
	}
	close(c.send)
	c.mu.Unlock()

	c.logger.Info("Realtime connection closed")
}

func (c *client) handleEvent(message []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(message, &evt); err != nil {
		c.logger.Warn("Failed to parse client event", zap.Error(err))
		c.sendError("invalid_json", "event is not valid JSON")
		return
	}

	switch evt.Type {
	case realtime.EventSessionUpdate:
		c.handleSessionUpdate(evt.Session)
	case realtime.EventAudioAppend:
		c.handleAudioAppend(evt.Audio)
	default:
		c.logger.Warn("Unknown client event", zap.String("type", evt.Type))
	}
}

// handleSessionUpdate merges the session settings. Partial updates are
// the norm: a voice-only patch must not wipe the instructions sent in
// the initial update. The chat history is seeded once.
func (c *client) handleSessionUpdate(session realtime.SessionConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session.Voice != "" {
		c.session.Voice = session.Voice
	}
	if session.Instructions != "" {
		c.session.Instructions = session.Instructions
	}
	if session.InputAudioFormat != "" {
		c.session.InputAudioFormat = session.InputAudioFormat
	}
	if session.OutputAudioFormat != "" {
		c.session.OutputAudioFormat = session.OutputAudioFormat
	}
	if session.InputAudioTranscription != nil {
		c.session.InputAudioTranscription = session.InputAudioTranscription
	}
	if session.Tools != nil {
		c.session.Tools = session.Tools
	}
	if !c.seeded {
		for _, msg := range session.Messages {
			role := entities.RoleUser
			if msg.Role == string(entities.RoleAssistant) {
				role = entities.RoleAssistant
			}
			c.history = append(c.history, entities.Message{
				Role:    role,
				Content: msg.Content,
			})
		}
		c.seeded = true
	}
	c.logger.Info("Session configured",
		zap.String("voice", session.Voice),
		zap.Int("seed_messages", len(session.Messages)),
	)
}

// handleAudioAppend buffers a capture frame and arms the turn timer.
func (c *client) handleAudioAppend(audio string) {
	pcm, err := codec.Base64ToPCM16(audio)
	if err != nil {
		c.logger.Warn("Failed to decode audio frame", zap.Error(err))
		c.sendError("invalid_audio", "audio is not valid base64")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.buffer = append(c.buffer, pcm...)
	if c.turnTimer != nil {
		c.turnTimer.Stop()
	}
	c.turnTimer = time.AfterFunc(c.server.config.TurnHold, c.commitTurn)
}

// commitTurn takes the buffered audio for one utterance and runs the
// full speech pipeline on it.
func (c *client) commitTurn() {
	c.mu.Lock()
	if c.closed || len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	pcm := c.buffer
	c.buffer = nil
	instructions := c.session.Instructions
	history := make([]entities.Message, len(c.history))
	copy(history, c.history)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	transcript, err := c.transcribe(ctx, pcm)
	if err != nil {
		c.logger.Warn("Recognition failed", zap.Error(err))
		c.sendError("transcription_failed", err.Error())
		return
	}

	itemID := uuid.NewString()
	c.sendEvent(map[string]interface{}{
		"type":       realtime.EventTranscriptionCompleted,
		"item_id":    itemID,
		"transcript": transcript,
	})
	c.appendHistory(entities.NewMessage(entities.RoleUser, transcript))

	reply, err := c.server.responder.Respond(ctx, instructions, history, transcript)
	if err != nil {
		c.logger.Error("Chat model failed", zap.Error(err))
		c.sendError("response_failed", err.Error())
		return
	}

	responseID := uuid.NewString()
	if err := c.speak(ctx, responseID, reply); err != nil {
		c.logger.Error("Synthesis failed", zap.Error(err))
		c.sendError("synthesis_failed", err.Error())
		return
	}

	c.sendEvent(map[string]interface{}{
		"type":        realtime.EventResponseDone,
		"response_id": responseID,
		"response": realtime.Response{
			Output: []realtime.ResponseOutput{{
				Content: []realtime.ResponseContent{{Transcript: reply}},
			}},
		},
	})
	c.appendHistory(entities.NewMessage(entities.RoleAssistant, reply))

	c.logger.Info("Turn completed",
		zap.String("response_id", responseID),
		zap.String("transcript", transcript),
	)
}

func (c *client) transcribe(ctx context.Context, pcm []byte) (string, error) {
	stream, err := c.server.stt.InitTranscribeStreaming(ctx, repositories.AudioConfig{
		SampleRate: realtime.SampleRate,
		Encoding:   "LINEAR16",
		Language:   c.server.config.Language,
	})
	if err != nil {
		return "", err
	}
	if err := stream.Stream(pcm); err != nil {
		return "", err
	}
	return stream.End()
}

// speak synthesizes reply and streams it out as audio deltas.
func (c *client) speak(ctx context.Context, responseID, reply string) error {
	audio, err := c.server.tts.ConvertTextToSpeech(ctx, reply)
	if err != nil {
		return err
	}
	for chunk := range audio {
		c.sendEvent(map[string]interface{}{
			"type":        realtime.EventAudioDelta,
			"response_id": responseID,
			"delta":       base64.StdEncoding.EncodeToString(chunk),
		})
	}
	return nil
}

func (c *client) appendHistory(msg entities.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, msg)
}

func (c *client) sendError(code, message string) {
	c.sendEvent(map[string]interface{}{
		"type": realtime.EventError,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func (c *client) sendEvent(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	// The non-blocking send happens under the lock so it cannot race a
	// concurrent shutdown closing the channel.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- writeData{messageType: websocket.TextMessage, payload: payload}:
	default:
		c.logger.Warn("Dropping event, outbound queue full")
	}
}
