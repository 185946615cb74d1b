package repositories

import (
	"context"

	"github.com/adiwarman/lantun/domain/entities"
)

// Responder abstracts the chat model the dev emulator uses to produce
// assistant replies to recognized speech.
type Responder interface {
	// Respond returns the assistant reply to prompt given the prior
	// conversation and system instructions.
	Respond(ctx context.Context, instructions string, history []entities.Message, prompt string) (string, error)
}
