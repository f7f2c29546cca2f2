// Package session implements the default browser store, session manager
// and tab use cases on a single in-memory state, optionally persisted as
// snapshots through a Storage.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
)

// SessionState is the persisted form of a session.
type SessionState struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the persisted browser state. Private sessions are never
// included.
type Snapshot struct {
	Sessions   []SessionState `json:"sessions"`
	SelectedID string         `json:"selected_id,omitempty"`
	SavedAt    time.Time      `json:"saved_at"`
}

// Storage persists snapshots.
type Storage interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}

// StorageMetrics observes snapshot operations. A nil value disables it.
type StorageMetrics interface {
	ObserveSnapshot(operation string, duration time.Duration, sessions int, err error)
}

// Stats summarizes the manager state.
type Stats struct {
	Sessions        int    `json:"sessions"`
	EngineSessions  int    `json:"engine_sessions"`
	SelectedID      string `json:"selected_id,omitempty"`
	LowMemoryEvents int    `json:"low_memory_events"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithStorage persists every state change through s.
func WithStorage(s Storage) Option {
	return func(m *Manager) { m.storage = s }
}

// WithMetrics observes storage operations.
func WithMetrics(sm StorageMetrics) Option {
	return func(m *Manager) { m.metrics = sm }
}

// Manager is the default browser.Store, browser.SessionManager and
// browser.TabsUseCases.
type Manager struct {
	mu              sync.RWMutex
	sessions        []*browser.Session
	selected        string
	lowMemoryEvents int

	storage Storage
	metrics StorageMetrics
}

var (
	_ browser.Store          = (*Manager)(nil)
	_ browser.SessionManager = (*Manager)(nil)
	_ browser.TabsUseCases   = (*Manager)(nil)
)

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads the last snapshot from storage. Restored sessions have no
// engine session until the host materializes them.
func (m *Manager) Restore(ctx context.Context) error {
	if m.storage == nil {
		return nil
	}

	start := time.Now()
	snap, err := m.storage.Load(ctx)
	m.observe("load", start, len(snap.Sessions), err)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = m.sessions[:0]
	for _, st := range snap.Sessions {
		m.sessions = append(m.sessions, &browser.Session{
			ID:        st.ID,
			URL:       st.URL,
			CreatedAt: st.CreatedAt,
		})
	}
	m.selected = ""
	if m.indexOf(snap.SelectedID) >= 0 {
		m.selected = snap.SelectedID
	}

	logger.InfoCtx(ctx, "Sessions restored", logger.KeySessions, len(m.sessions))
	return nil
}

// Add appends session and optionally selects it.
func (m *Manager) Add(session *browser.Session, selected bool) {
	m.mu.Lock()
	m.sessions = append(m.sessions, session)
	if selected || m.selected == "" {
		m.selected = session.ID
	}
	m.mu.Unlock()

	logger.Debug("Session added", logger.KeySessionID, session.ID, logger.KeyURL, session.URL)
	m.persist()
}

// FindByID returns the session with the given id.
func (m *Manager) FindByID(id string) (*browser.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOf(id); i >= 0 {
		return m.sessions[i], true
	}
	return nil, false
}

// Sessions returns a copy of the session list in insertion order.
func (m *Manager) Sessions() []*browser.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sessions)
}

// Selected returns the selected session.
func (m *Manager) Selected() (*browser.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOf(m.selected); i >= 0 {
		return m.sessions[i], true
	}
	return nil, false
}

// RemoveTab closes and removes the session with id. Unknown ids are
// ignored. Removing the selected tab selects its neighbour.
func (m *Manager) RemoveTab(id string) {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	removed := m.sessions[i]
	m.sessions = slices.Delete(m.sessions, i, i+1)
	if m.selected == id {
		m.selected = ""
		if len(m.sessions) > 0 {
			m.selected = m.sessions[min(i, len(m.sessions)-1)].ID
		}
	}
	m.mu.Unlock()

	if removed.EngineSession != nil {
		if err := removed.EngineSession.Close(); err != nil {
			logger.Warn("Failed to close engine session", logger.KeySessionID, id, logger.KeyError, err)
		}
	}
	logger.Debug("Session removed", logger.KeySessionID, id)
	m.persist()
}

// SelectTab selects session. Sessions not managed here are ignored.
func (m *Manager) SelectTab(session *browser.Session) {
	if session == nil {
		return
	}

	m.mu.Lock()
	if m.indexOf(session.ID) < 0 {
		m.mu.Unlock()
		return
	}
	m.selected = session.ID
	m.mu.Unlock()

	m.persist()
}

// Dispatch applies action to the state.
func (m *Manager) Dispatch(action browser.Action) {
	switch a := action.(type) {
	case browser.LowMemoryAction:
		m.onLowMemory(a.Level)
	default:
		logger.Debug("Ignoring unsupported action", "action", action.ActionName())
	}
}

// onLowMemory releases the engine sessions of every unselected tab once
// the level reaches TrimMemoryRunningLow. The tabs themselves stay open.
func (m *Manager) onLowMemory(level browser.MemoryLevel) {
	m.mu.Lock()
	m.lowMemoryEvents++
	var released []browser.EngineSession
	if level >= browser.TrimMemoryRunningLow {
		for _, s := range m.sessions {
			if s.ID != m.selected && s.EngineSession != nil {
				released = append(released, s.EngineSession)
				s.EngineSession = nil
			}
		}
	}
	m.mu.Unlock()

	for _, es := range released {
		if err := es.Close(); err != nil {
			logger.Warn("Failed to release engine session", logger.KeyError, err)
		}
	}
	logger.Info("Store handled low memory",
		logger.KeyLevel, int(level), logger.KeyLevelID, level.String(), logger.KeyEvicted, len(released))
}

// Stats returns a summary of the current state.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{
		Sessions:        len(m.sessions),
		SelectedID:      m.selected,
		LowMemoryEvents: m.lowMemoryEvents,
	}
	for _, s := range m.sessions {
		if s.EngineSession != nil {
			st.EngineSessions++
		}
	}
	return st
}

// Snapshot returns the persistable state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{SavedAt: time.Now().UTC()}
	for _, s := range m.sessions {
		if s.Private {
			continue
		}
		snap.Sessions = append(snap.Sessions, SessionState{
			ID:        s.ID,
			URL:       s.URL,
			CreatedAt: s.CreatedAt,
		})
		if s.ID == m.selected {
			snap.SelectedID = s.ID
		}
	}
	return snap
}

// Close saves a final snapshot, closes every engine session and closes
// the storage.
func (m *Manager) Close() error {
	var errs []error
	if m.storage != nil {
		if err := m.save(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	var open []browser.EngineSession
	for _, s := range m.sessions {
		if s.EngineSession != nil {
			open = append(open, s.EngineSession)
			s.EngineSession = nil
		}
	}
	m.mu.Unlock()
	for _, es := range open {
		if err := es.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) persist() {
	if m.storage == nil {
		return
	}
	if err := m.save(context.Background()); err != nil {
		logger.Warn("Failed to persist sessions", logger.KeyError, err)
	}
}

func (m *Manager) save(ctx context.Context) error {
	snap := m.Snapshot()
	start := time.Now()
	err := m.storage.Save(ctx, snap)
	m.observe("save", start, len(snap.Sessions), err)
	return err
}

func (m *Manager) observe(op string, start time.Time, sessions int, err error) {
	if m.metrics != nil {
		m.metrics.ObserveSnapshot(op, time.Since(start), sessions, err)
	}
}

// indexOf must be called with m.mu held.
func (m *Manager) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(m.sessions, func(s *browser.Session) bool { return s.ID == id })
}
