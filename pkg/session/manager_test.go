package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/browser"
)

type fakeEngineSession struct {
	url    string
	closed atomic.Bool
	closes atomic.Int32
}

func (f *fakeEngineSession) URL() string { return f.url }

func (f *fakeEngineSession) Close() error {
	f.closed.Store(true)
	f.closes.Add(1)
	return nil
}

type memoryStorage struct {
	saved   []Snapshot
	load    Snapshot
	saveErr error
	closed  bool
}

func (s *memoryStorage) Save(_ context.Context, snap Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, snap)
	return nil
}

func (s *memoryStorage) Load(context.Context) (Snapshot, error) { return s.load, nil }

func (s *memoryStorage) Close() error {
	s.closed = true
	return nil
}

type countingMetrics struct {
	ops map[string]int
}

func (c *countingMetrics) ObserveSnapshot(op string, _ time.Duration, _ int, _ error) {
	if c.ops == nil {
		c.ops = make(map[string]int)
	}
	c.ops[op]++
}

func TestAddAndFind(t *testing.T) {
	m := NewManager()
	a := browser.NewSession("https://a", nil)
	b := browser.NewSession("https://b", nil)

	m.Add(a, false)
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, sel.ID, "first session is selected automatically")

	m.Add(b, false)
	sel, _ = m.Selected()
	assert.Equal(t, a.ID, sel.ID)

	got, ok := m.FindByID(b.ID)
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = m.FindByID("missing")
	assert.False(t, ok)
	_, ok = m.FindByID("")
	assert.False(t, ok)
}

func TestAddSelected(t *testing.T) {
	m := NewManager()
	a := browser.NewSession("https://a", nil)
	b := browser.NewSession("https://b", nil)
	m.Add(a, false)
	m.Add(b, true)

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, b.ID, sel.ID)
}

func TestSelectTab(t *testing.T) {
	m := NewManager()
	a := browser.NewSession("https://a", nil)
	b := browser.NewSession("https://b", nil)
	m.Add(a, true)
	m.Add(b, false)

	m.SelectTab(b)
	sel, _ := m.Selected()
	assert.Equal(t, b.ID, sel.ID)

	m.SelectTab(browser.NewSession("https://foreign", nil))
	m.SelectTab(nil)
	sel, _ = m.Selected()
	assert.Equal(t, b.ID, sel.ID)
}

func TestRemoveTab(t *testing.T) {
	es := &fakeEngineSession{url: "https://b"}
	m := NewManager()
	a := browser.NewSession("https://a", nil)
	b := browser.NewSession("https://b", es)
	c := browser.NewSession("https://c", nil)
	m.Add(a, false)
	m.Add(b, true)
	m.Add(c, false)

	m.RemoveTab(b.ID)

	assert.True(t, es.closed.Load())
	assert.Len(t, m.Sessions(), 2)
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, c.ID, sel.ID, "neighbour takes over selection")

	m.RemoveTab("missing")
	assert.Len(t, m.Sessions(), 2)

	m.RemoveTab(c.ID)
	sel, _ = m.Selected()
	assert.Equal(t, a.ID, sel.ID)

	m.RemoveTab(a.ID)
	_, ok = m.Selected()
	assert.False(t, ok)
}

func TestLowMemoryReleasesBackgroundTabs(t *testing.T) {
	selectedES := &fakeEngineSession{}
	backgroundES := &fakeEngineSession{}
	m := NewManager()
	fg := browser.NewSession("https://fg", selectedES)
	bg := browser.NewSession("https://bg", backgroundES)
	m.Add(fg, true)
	m.Add(bg, false)

	m.Dispatch(browser.LowMemoryAction{Level: browser.TrimMemoryRunningModerate})
	assert.False(t, backgroundES.closed.Load())
	assert.Equal(t, 2, m.Stats().EngineSessions)

	m.Dispatch(browser.LowMemoryAction{Level: browser.TrimMemoryComplete})
	assert.True(t, backgroundES.closed.Load())
	assert.False(t, selectedES.closed.Load())
	assert.Nil(t, bg.EngineSession)

	st := m.Stats()
	assert.Equal(t, 2, st.Sessions)
	assert.Equal(t, 1, st.EngineSessions)
	assert.Equal(t, 2, st.LowMemoryEvents)
	assert.Equal(t, fg.ID, st.SelectedID)
}

func TestCloseRacesLowMemory(t *testing.T) {
	m := NewManager()
	var all []*fakeEngineSession
	for i := 0; i < 32; i++ {
		es := &fakeEngineSession{}
		all = append(all, es)
		m.Add(browser.NewSession("https://tab", es), i == 0)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Dispatch(browser.LowMemoryAction{Level: browser.TrimMemoryComplete})
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, m.Close())
	}()
	wg.Wait()

	for _, es := range all {
		assert.Equal(t, int32(1), es.closes.Load())
	}
	assert.Zero(t, m.Stats().EngineSessions)
}

type unknownAction struct{}

func (unknownAction) ActionName() string { return "unknown" }

func TestDispatchIgnoresUnknownAction(t *testing.T) {
	m := NewManager()
	assert.NotPanics(t, func() { m.Dispatch(unknownAction{}) })
}

func TestPersistence(t *testing.T) {
	storage := &memoryStorage{}
	metrics := &countingMetrics{}
	m := NewManager(WithStorage(storage), WithMetrics(metrics))

	a := browser.NewSession("https://a", nil)
	private := browser.NewSession("https://secret", nil)
	private.Private = true
	m.Add(a, true)
	m.Add(private, false)

	require.Len(t, storage.saved, 2)
	last := storage.saved[1]
	require.Len(t, last.Sessions, 1)
	assert.Equal(t, a.ID, last.Sessions[0].ID)
	assert.Equal(t, a.ID, last.SelectedID)
	assert.Equal(t, 2, metrics.ops["save"])

	require.NoError(t, m.Close())
	assert.True(t, storage.closed)
}

func TestPersistFailureIsNotFatal(t *testing.T) {
	storage := &memoryStorage{saveErr: errors.New("disk full")}
	m := NewManager(WithStorage(storage))

	assert.NotPanics(t, func() { m.Add(browser.NewSession("https://a", nil), true) })
	assert.Len(t, m.Sessions(), 1)
	assert.Error(t, m.Close())
}

func TestRestore(t *testing.T) {
	storage := &memoryStorage{load: Snapshot{
		Sessions: []SessionState{
			{ID: "one", URL: "https://one"},
			{ID: "two", URL: "https://two"},
		},
		SelectedID: "two",
	}}
	metrics := &countingMetrics{}
	m := NewManager(WithStorage(storage), WithMetrics(metrics))

	require.NoError(t, m.Restore(context.Background()))
	assert.Len(t, m.Sessions(), 2)
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "two", sel.ID)
	assert.Nil(t, sel.EngineSession)
	assert.Equal(t, 1, metrics.ops["load"])
}

func TestRestoreWithoutStorage(t *testing.T) {
	assert.NoError(t, NewManager().Restore(context.Background()))
}
