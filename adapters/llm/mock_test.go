package llm

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/adiwarman/lantun/domain/entities"
)

func TestMockResponderEchoesPrompt(t *testing.T) {
	m := NewMockResponder(zaptest.NewLogger(t))

	reply, err := m.Respond(context.Background(), "be brief", nil, "hello")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(reply, "hello") {
		t.Errorf("reply %q does not mention the prompt", reply)
	}
}

func TestMockResponderHonorsCancellation(t *testing.T) {
	m := NewMockResponder(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Respond(ctx, "", nil, "hello"); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestHistoryToContents(t *testing.T) {
	history := []entities.Message{
		{Role: entities.RoleUser, Content: "hi"},
		{Role: entities.RoleAssistant, Content: "hello"},
		{Role: entities.RoleUser, Content: "   "},
	}

	contents := historyToContents("translate everything", history)

	// Instructions plus two non-blank turns.
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
}
