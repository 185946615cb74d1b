// Package store provides chat log storage backends.
package store

import (
	"sync"

	"github.com/adiwarman/lantun/domain/entities"
)

// MemoryChatStore is an in-memory implementation of ChatStore. The
// chat log lives for the lifetime of the process only.
type MemoryChatStore struct {
	mu       sync.RWMutex
	messages []entities.Message
}

// NewMemoryChatStore creates an empty in-memory chat store.
func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{}
}

// AddMessage appends a message to the chat log.
func (m *MemoryChatStore) AddMessage(msg entities.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// History returns a copy of the chat log in insertion order.
func (m *MemoryChatStore) History() []entities.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear empties the chat log.
func (m *MemoryChatStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
