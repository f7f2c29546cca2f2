package browser

import (
	"time"

	"github.com/google/uuid"
)

// Session is one browser tab.
type Session struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`

	// EngineSession is nil until the engine has materialized the tab, and
	// again after the store released it under memory pressure.
	EngineSession EngineSession `json:"-"`
}

// NewSession creates a session with a fresh identifier.
func NewSession(url string, engineSession EngineSession) *Session {
	return &Session{
		ID:            uuid.NewString(),
		URL:           url,
		CreatedAt:     time.Now().UTC(),
		EngineSession: engineSession,
	}
}

// Action is a state change dispatched to the Store.
type Action interface {
	ActionName() string
}

// Store is the browser state store.
type Store interface {
	Dispatch(action Action)
}

// SessionManager owns the set of open sessions.
type SessionManager interface {
	Add(session *Session, selected bool)
	FindByID(id string) (*Session, bool)
	Sessions() []*Session
}

// TabsUseCases are the tab operations exposed to UI and extensions.
type TabsUseCases interface {
	RemoveTab(id string)
	SelectTab(session *Session)
}
