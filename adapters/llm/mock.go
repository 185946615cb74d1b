package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adiwarman/lantun/domain/entities"
)

// MockResponder echoes a canned reply so the voice service can run
// without a model API key.
type MockResponder struct {
	logger *zap.Logger
}

// NewMockResponder creates a responder that never touches the network.
func NewMockResponder(logger *zap.Logger) *MockResponder {
	return &MockResponder{logger: logger}
}

func (m *MockResponder) Respond(ctx context.Context, instructions string, history []entities.Message, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.logger.Debug("Producing mock reply",
		zap.Int("history_length", len(history)),
		zap.String("prompt", prompt),
	)
	return fmt.Sprintf("You said: %s", prompt), nil
}
