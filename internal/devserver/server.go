// Package devserver implements a small realtime voice service used
// for local development. It speaks the same websocket protocol as the
// client: session.update and input_audio_buffer.append inbound,
// transcription events, audio deltas and response.done outbound.
package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/auth"
)

const (
	protocolName = "realtime"
	tokenPrefix  = "lantun-token."

	defaultTurnHold = 700 * time.Millisecond
	defaultLanguage = "en-US"
)

// Config tunes the emulator.
type Config struct {
	// TokenSecret enables session token validation when non-empty.
	TokenSecret []byte
	// Language is passed to the recognizer.
	Language string
	// TurnHold is how long the audio buffer must stay quiet before a
	// turn is committed.
	TurnHold time.Duration
}

// Server serves the realtime websocket endpoint.
type Server struct {
	stt       repositories.SpeechToText
	responder repositories.Responder
	tts       repositories.TextToSpeech
	logger    *zap.Logger
	config    Config
	upgrader  websocket.Upgrader
}

// New creates a server over the given speech, chat and synthesis
// backends.
func New(stt repositories.SpeechToText, responder repositories.Responder, tts repositories.TextToSpeech, logger *zap.Logger, config Config) *Server {
	if config.Language == "" {
		config.Language = defaultLanguage
	}
	if config.TurnHold <= 0 {
		config.TurnHold = defaultTurnHold
	}
	return &Server{
		stt:       stt,
		responder: responder,
		tts:       tts,
		logger:    logger,
		config:    config,
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{protocolName},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local development only.
				return true
			},
		},
	}
}

// Register mounts the health and realtime routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "lantun-devserver",
		})
	})
	e.GET("/v1/realtime", s.handleRealtime)
}

// handleRealtime authenticates the handshake and hands the connection
// to a per-client session.
func (s *Server) handleRealtime(c echo.Context) error {
	token := tokenFromProtocols(websocket.Subprotocols(c.Request()))

	if len(s.config.TokenSecret) > 0 {
		if token == "" {
			s.logger.Warn("Realtime connection rejected: missing token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing session token",
			})
		}
		claims, err := auth.ValidateSessionToken(token, s.config.TokenSecret)
		if err != nil {
			s.logger.Warn("Realtime connection rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid session token",
			})
		}
		s.logger.Info("Realtime connection authenticated",
			zap.String("client_id", claims.ClientID))
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return err
	}

	model := c.QueryParam("model")
	client := newClient(s, conn, s.logger.With(zap.String("model", model)))
	go client.writePump()
	go client.readPump()
	return nil
}

// tokenFromProtocols extracts the credential the client smuggles in as
// an offered subprotocol.
func tokenFromProtocols(protocols []string) string {
	for _, p := range protocols {
		if strings.HasPrefix(p, tokenPrefix) {
			return strings.TrimPrefix(p, tokenPrefix)
		}
	}
	return ""
}
