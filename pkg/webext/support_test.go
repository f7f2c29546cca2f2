package webext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/browser"
)

type stubEngine struct {
	createErr error
}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) WarmUp(context.Context) error { return nil }

func (stubEngine) DeliverPush(context.Context, string, []byte) error { return nil }

func (stubEngine) Close() error { return nil }

func (e stubEngine) CreateEngineSession(_ context.Context, url string) (browser.EngineSession, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	return stubSession(url), nil
}

type stubSession string

func (s stubSession) URL() string { return string(s) }

func (stubSession) Close() error { return nil }

type stubStore struct{}

func (stubStore) Dispatch(browser.Action) {}

type recordingCallbacks struct {
	opened   []string
	closed   []string
	selected []string
	perms    []browser.PermissionRequest
}

func (r *recordingCallbacks) NewTab(url string, es browser.EngineSession) string {
	r.opened = append(r.opened, url+"|"+es.URL())
	return "tab-1"
}

func (r *recordingCallbacks) CloseTab(id string) { r.closed = append(r.closed, id) }

func (r *recordingCallbacks) SelectTab(id string) { r.selected = append(r.selected, id) }

func (r *recordingCallbacks) RequestPermission(req browser.PermissionRequest) {
	r.perms = append(r.perms, req)
}

func TestInitializeOnce(t *testing.T) {
	s := New()
	assert.False(t, s.Initialized())

	first := &recordingCallbacks{}
	require.NoError(t, s.Initialize(stubEngine{}, stubStore{}, first))
	assert.True(t, s.Initialized())

	second := &recordingCallbacks{}
	assert.ErrorIs(t, s.Initialize(stubEngine{}, stubStore{}, second), ErrAlreadyInitialized)

	require.NoError(t, s.CloseTab("x"))
	assert.Equal(t, []string{"x"}, first.closed)
	assert.Empty(t, second.closed)
}

func TestInitializeRequiresArguments(t *testing.T) {
	assert.Error(t, New().Initialize(nil, stubStore{}, &recordingCallbacks{}))
	assert.Error(t, New().Initialize(stubEngine{}, nil, &recordingCallbacks{}))
	assert.Error(t, New().Initialize(stubEngine{}, stubStore{}, nil))
}

func TestRequestsBeforeInitialize(t *testing.T) {
	s := New()
	_, err := s.OpenTab(context.Background(), "https://a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.CloseTab("x"), ErrNotInitialized)
	assert.ErrorIs(t, s.SelectTab("x"), ErrNotInitialized)
	assert.ErrorIs(t, s.RequestPermission(browser.PermissionRequest{}), ErrNotInitialized)
}

func TestRoutesToCallbacks(t *testing.T) {
	s := New()
	cb := &recordingCallbacks{}
	require.NoError(t, s.Initialize(stubEngine{}, stubStore{}, cb))

	id, err := s.OpenTab(context.Background(), "https://a")
	require.NoError(t, err)
	assert.Equal(t, "tab-1", id)
	assert.Equal(t, []string{"https://a|https://a"}, cb.opened)

	require.NoError(t, s.SelectTab("tab-1"))
	assert.Equal(t, []string{"tab-1"}, cb.selected)

	require.NoError(t, s.RequestPermission(browser.PermissionRequest{AddonID: "ublock"}))
	require.Len(t, cb.perms, 1)
	assert.Equal(t, "ublock", cb.perms[0].AddonID)
}

func TestOpenTabEngineFailure(t *testing.T) {
	boom := errors.New("engine down")
	s := New()
	cb := &recordingCallbacks{}
	require.NoError(t, s.Initialize(stubEngine{createErr: boom}, stubStore{}, cb))

	_, err := s.OpenTab(context.Background(), "https://a")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cb.opened)
}
