package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/browser"
)

type recordingEngine struct {
	mu        sync.Mutex
	delivered map[string][][]byte
	err       error
}

func (e *recordingEngine) Name() string { return "recording" }

func (e *recordingEngine) WarmUp(context.Context) error { return nil }

func (e *recordingEngine) Close() error { return nil }

func (e *recordingEngine) CreateEngineSession(context.Context, string) (browser.EngineSession, error) {
	return nil, nil
}

func (e *recordingEngine) DeliverPush(_ context.Context, scope string, payload []byte) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.delivered == nil {
		e.delivered = make(map[string][][]byte)
	}
	e.delivered[scope] = append(e.delivered[scope], payload)
	return nil
}

type recordingAccounts struct {
	payloads [][]byte
}

func (a *recordingAccounts) HandlePushMessage(_ context.Context, payload []byte) error {
	a.payloads = append(a.payloads, payload)
	return nil
}

func TestConfigVariant(t *testing.T) {
	_, ok := NotConfigured().Feature()
	assert.False(t, ok)
	assert.False(t, NotConfigured().IsConfigured())
	assert.False(t, Configured(nil).IsConfigured())

	relay := NewRelay()
	f, ok := Configured(relay).Feature()
	require.True(t, ok)
	assert.Same(t, relay, f)
}

func TestProcessor(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor()
	assert.False(t, p.Installed())
	assert.ErrorIs(t, p.OnMessage(ctx, "https://a", nil), ErrNotConfigured)

	relay := NewRelay()
	p.Install(relay)
	assert.True(t, p.Installed())
	assert.ErrorIs(t, p.OnMessage(ctx, "https://a", nil), ErrNotInitialized)
}

func TestRelayRoutesByScope(t *testing.T) {
	ctx := context.Background()
	engine := &recordingEngine{}
	accounts := &recordingAccounts{}
	resolved := 0

	relay := NewRelay()
	require.NoError(t, NewEngineIntegration(engine, relay, "account").Start())
	require.NoError(t, NewAccountIntegration(relay, "account", func() (browser.AccountManager, error) {
		resolved++
		return accounts, nil
	}).Start())
	require.NoError(t, relay.Initialize(ctx))
	require.NoError(t, relay.Initialize(ctx))

	assert.Equal(t, 0, resolved)

	require.NoError(t, relay.OnMessage(ctx, "https://news.example", []byte("hello")))
	require.NoError(t, relay.OnMessage(ctx, "account", []byte("sync")))

	assert.Equal(t, [][]byte{[]byte("hello")}, engine.delivered["https://news.example"])
	assert.NotContains(t, engine.delivered, "account")
	assert.Equal(t, [][]byte{[]byte("sync")}, accounts.payloads)
	assert.Equal(t, 1, resolved)
}

func TestRelayNoObserver(t *testing.T) {
	relay := NewRelay()
	require.NoError(t, relay.Initialize(context.Background()))
	assert.ErrorIs(t, relay.OnMessage(context.Background(), "https://a", nil), ErrNoObserver)
}

func TestRelayObserverError(t *testing.T) {
	boom := errors.New("engine gone")
	relay := NewRelay()
	require.NoError(t, NewEngineIntegration(&recordingEngine{err: boom}, relay, "").Start())
	require.NoError(t, relay.Initialize(context.Background()))

	assert.ErrorIs(t, relay.OnMessage(context.Background(), "https://a", nil), boom)
}

func TestIntegrationStartTwice(t *testing.T) {
	relay := NewRelay()
	e := NewEngineIntegration(&recordingEngine{}, relay, "")
	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), ErrAlreadyStarted)

	a := NewAccountIntegration(relay, "account", nil)
	require.NoError(t, a.Start())
	assert.ErrorIs(t, a.Start(), ErrAlreadyStarted)
}

func TestAccountIntegrationResolveError(t *testing.T) {
	boom := errors.New("no account store")
	relay := NewRelay()
	require.NoError(t, NewAccountIntegration(relay, "account", func() (browser.AccountManager, error) {
		return nil, boom
	}).Start())
	require.NoError(t, relay.Initialize(context.Background()))

	assert.ErrorIs(t, relay.OnMessage(context.Background(), "account", nil), boom)
}
