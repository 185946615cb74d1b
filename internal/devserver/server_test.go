package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/adiwarman/lantun/adapters/llm"
	"github.com/adiwarman/lantun/adapters/stt"
	"github.com/adiwarman/lantun/adapters/tts"
	"github.com/adiwarman/lantun/domain/entities"
	"github.com/adiwarman/lantun/internal/auth"
	"github.com/adiwarman/lantun/internal/codec"
	"github.com/adiwarman/lantun/internal/realtime"
)

func newTestServer(t *testing.T, config Config) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s := New(
		stt.NewMockSpeechToText(logger),
		llm.NewMockResponder(logger),
		tts.NewToneTTS(logger),
		logger,
		config,
	)
	e := echo.New()
	s.Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime?model=test-model"
	subprotocols := []string{"realtime"}
	if token != "" {
		subprotocols = append(subprotocols, "lantun-token."+token)
	}
	dialer := websocket.Dialer{Subprotocols: subprotocols}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.ServerEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt realtime.ServerEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return evt
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestFullTurnPipeline(t *testing.T) {
	srv := newTestServer(t, Config{TurnHold: 50 * time.Millisecond})
	conn := dial(t, srv, "")

	sendJSON(t, conn, realtime.SessionUpdateEvent{
		Type: realtime.EventSessionUpdate,
		Session: realtime.SessionConfig{
			Voice:        "alloy",
			Instructions: "reply briefly",
		},
	})

	// One second of silence-ish audio, enough for the recognizer.
	frame := codec.PCM16ToBase64(make([]byte, 48000))
	sendJSON(t, conn, realtime.AudioAppendEvent{
		Type:  realtime.EventAudioAppend,
		Audio: frame,
	})

	var sawTranscription, sawDelta bool
	var userTranscript, assistantTranscript string
	for {
		evt := readEvent(t, conn)
		switch evt.Type {
		case realtime.EventTranscriptionCompleted:
			sawTranscription = true
			userTranscript = evt.Transcript
		case realtime.EventAudioDelta:
			sawDelta = true
			if _, err := codec.Base64ToPCM16(evt.Delta); err != nil {
				t.Errorf("delta is not valid base64: %v", err)
			}
		case realtime.EventResponseDone:
			assistantTranscript = evt.Response.FirstTranscript()
			if !sawTranscription {
				t.Error("response.done arrived before the transcription event")
			}
			if !sawDelta {
				t.Error("response.done arrived without any audio deltas")
			}
			if userTranscript == "" {
				t.Error("empty user transcript")
			}
			if assistantTranscript == "" {
				t.Error("empty assistant transcript")
			}
			return
		default:
			t.Fatalf("unexpected event %q", evt.Type)
		}
	}
}

// recordingResponder keeps the instructions from each turn so tests can
// check what the chat model actually saw.
type recordingResponder struct {
	mu           sync.Mutex
	instructions []string
}

func (r *recordingResponder) Respond(ctx context.Context, instructions string, history []entities.Message, transcript string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instructions = append(r.instructions, instructions)
	return "ok", nil
}

func TestVoiceOnlyUpdateKeepsInstructions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	responder := &recordingResponder{}
	s := New(
		stt.NewMockSpeechToText(logger),
		responder,
		tts.NewToneTTS(logger),
		logger,
		Config{TurnHold: 50 * time.Millisecond},
	)
	e := echo.New()
	s.Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	conn := dial(t, srv, "")

	sendJSON(t, conn, realtime.SessionUpdateEvent{
		Type: realtime.EventSessionUpdate,
		Session: realtime.SessionConfig{
			Voice:        "alloy",
			Instructions: "reply briefly",
		},
	})
	sendJSON(t, conn, realtime.SessionUpdateEvent{
		Type:    realtime.EventSessionUpdate,
		Session: realtime.SessionConfig{Voice: "verse"},
	})

	sendJSON(t, conn, realtime.AudioAppendEvent{
		Type:  realtime.EventAudioAppend,
		Audio: codec.PCM16ToBase64(make([]byte, 24000)),
	})
	for {
		evt := readEvent(t, conn)
		if evt.Type == realtime.EventResponseDone {
			break
		}
	}

	responder.mu.Lock()
	defer responder.mu.Unlock()
	if len(responder.instructions) != 1 {
		t.Fatalf("responder ran %d turns, want 1", len(responder.instructions))
	}
	if responder.instructions[0] != "reply briefly" {
		t.Errorf("instructions = %q, want the ones from the first update", responder.instructions[0])
	}
}

func TestSecondTurnCarriesHistory(t *testing.T) {
	srv := newTestServer(t, Config{TurnHold: 50 * time.Millisecond})
	conn := dial(t, srv, "")

	sendJSON(t, conn, realtime.SessionUpdateEvent{Type: realtime.EventSessionUpdate})

	for turn := 0; turn < 2; turn++ {
		sendJSON(t, conn, realtime.AudioAppendEvent{
			Type:  realtime.EventAudioAppend,
			Audio: codec.PCM16ToBase64(make([]byte, 24000)),
		})
		for {
			evt := readEvent(t, conn)
			if evt.Type == realtime.EventResponseDone {
				break
			}
		}
	}
}

func TestMalformedAudioReportsError(t *testing.T) {
	srv := newTestServer(t, Config{TurnHold: 50 * time.Millisecond})
	conn := dial(t, srv, "")

	sendJSON(t, conn, realtime.AudioAppendEvent{
		Type:  realtime.EventAudioAppend,
		Audio: "not-base64!!!",
	})

	evt := readEvent(t, conn)
	if evt.Type != realtime.EventError {
		t.Fatalf("event type = %q, want error", evt.Type)
	}
	var detail struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(evt.Error, &detail); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if detail.Code != "invalid_audio" {
		t.Errorf("error code = %q, want invalid_audio", detail.Code)
	}
}

func TestTokenValidation(t *testing.T) {
	secret := []byte("test-secret")
	srv := newTestServer(t, Config{TokenSecret: secret, TurnHold: 50 * time.Millisecond})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime"
	dialer := websocket.Dialer{Subprotocols: []string{"realtime"}}
	if _, _, err := dialer.Dial(url, nil); err == nil {
		t.Error("expected handshake rejection without token")
	}

	dialer = websocket.Dialer{Subprotocols: []string{"realtime", "lantun-token.garbage"}}
	if _, _, err := dialer.Dial(url, nil); err == nil {
		t.Error("expected handshake rejection with invalid token")
	}

	token, err := auth.GenerateSessionToken("client-1", secret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}
	conn := dial(t, srv, token)
	if got := conn.Subprotocol(); got != "realtime" {
		t.Errorf("negotiated subprotocol = %q, want realtime", got)
	}
}

func TestTokenFromProtocols(t *testing.T) {
	tests := []struct {
		name      string
		protocols []string
		want      string
	}{
		{"token present", []string{"realtime", "lantun-token.abc"}, "abc"},
		{"no token", []string{"realtime"}, ""},
		{"empty list", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenFromProtocols(tt.protocols); got != tt.want {
				t.Errorf("tokenFromProtocols() = %q, want %q", got, tt.want)
			}
		})
	}
}
