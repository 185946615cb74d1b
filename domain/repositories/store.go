package repositories

import "github.com/adiwarman/lantun/domain/entities"

// ChatStore holds the chat log the voice session reads its history
// from and appends resolved transcripts to. The log lives for the
// process only; nothing is persisted across runs.
type ChatStore interface {
	AddMessage(msg entities.Message)
	History() []entities.Message
}
