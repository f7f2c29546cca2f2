// Package account holds the account manager that consumes account-scoped
// push messages (sync ticks, device commands).
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/kestrel/internal/logger"
)

// Message is a decoded account push message.
type Message struct {
	Command    string          `json:"command"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Manager is the default browser.AccountManager.
type Manager struct {
	mu       sync.Mutex
	messages []Message
	limit    int
}

// NewManager keeps the most recent limit messages. A non-positive limit
// keeps 100.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = 100
	}
	return &Manager{limit: limit}
}

// HandlePushMessage decodes payload as a JSON command envelope.
func (m *Manager) HandlePushMessage(ctx context.Context, payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode account message: %w", err)
	}
	if msg.Command == "" {
		return fmt.Errorf("decode account message: missing command")
	}
	msg.ReceivedAt = time.Now().UTC()

	m.mu.Lock()
	m.messages = append(m.messages, msg)
	if over := len(m.messages) - m.limit; over > 0 {
		m.messages = m.messages[over:]
	}
	m.mu.Unlock()

	logger.InfoCtx(ctx, "Account message received", "command", msg.Command)
	return nil
}

// Messages returns the retained messages, oldest first.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}
