package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/bootstrap"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/lifecycle"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/push"
	"github.com/marmos91/kestrel/pkg/registry"
	"github.com/marmos91/kestrel/pkg/session"
)

type fakeApp struct {
	signal    *lifecycle.Signal
	phase     bootstrap.Phase
	reg       *registry.Registry
	processor *push.Processor

	mu     sync.Mutex
	levels []browser.MemoryLevel
}

func newFakeApp() *fakeApp {
	a := &fakeApp{
		signal:    lifecycle.NewSignal(),
		phase:     bootstrap.PhaseScheduled,
		processor: push.NewProcessor(),
	}
	a.reg = registry.New(registry.Factories{
		PushProcessor: func() (browser.PushProcessor, error) { return a.processor, nil },
	})
	return a
}

func (a *fakeApp) Signal() *lifecycle.Signal { return a.signal }

func (a *fakeApp) Phase() bootstrap.Phase { return a.phase }

func (a *fakeApp) Role() process.Role { return process.RolePrimary }

func (a *fakeApp) Steps() []bootstrap.StepResult {
	if !a.signal.IsSet() {
		return nil
	}
	return []bootstrap.StepResult{{Step: bootstrap.StepEngine}}
}

func (a *fakeApp) Registry() *registry.Registry { return a.reg }

func (a *fakeApp) OnTrimMemory(level browser.MemoryLevel) {
	a.mu.Lock()
	a.levels = append(a.levels, level)
	a.mu.Unlock()
}

type recordingObserver struct {
	scopes   []string
	payloads []string
}

func (o *recordingObserver) OnMessageReceived(_ context.Context, scope string, payload []byte) error {
	o.scopes = append(o.scopes, scope)
	o.payloads = append(o.payloads, string(payload))
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

func TestLiveness(t *testing.T) {
	h := NewRouter(newFakeApp(), Sources{}, false)

	w, resp := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "kestrel", data["service"])
	assert.Equal(t, "primary", data["role"])
}

func TestReadinessFollowsSignal(t *testing.T) {
	app := newFakeApp()
	h := NewRouter(app, Sources{}, false)

	w, resp := do(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "scheduled", resp.Data.(map[string]any)["phase"])

	app.phase = bootstrap.PhaseWired
	app.signal.Set()

	w, resp = do(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wired", resp.Data.(map[string]any)["phase"])
}

func TestStatus(t *testing.T) {
	app := newFakeApp()
	app.signal.Set()
	h := NewRouter(app, Sources{
		Version: "1.2.3",
		Sessions: func() (session.Stats, bool) {
			return session.Stats{Sessions: 2, SelectedID: "abc"}, true
		},
		Permissions: func() []browser.PermissionRequest {
			return []browser.PermissionRequest{{AddonID: "a"}}
		},
	}, false)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Data   Status `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Data.Version)
	assert.Equal(t, "primary", body.Data.Role)
	assert.True(t, body.Data.Ready)
	require.Len(t, body.Data.Steps, 1)
	assert.Equal(t, bootstrap.StepEngine, body.Data.Steps[0].Step)
	require.NotNil(t, body.Data.Sessions)
	assert.Equal(t, 2, body.Data.Sessions.Sessions)
	assert.Equal(t, 1, body.Data.PendingPermissions)
	assert.Contains(t, body.Data.Constructed, registry.NameEngine)
}

func TestDebugRoutesDisabled(t *testing.T) {
	h := NewRouter(newFakeApp(), Sources{}, false)

	w, _ := do(t, h, http.MethodPost, "/debug/memory/RUNNING_LOW", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDebugMemory(t *testing.T) {
	app := newFakeApp()
	h := NewRouter(app, Sources{}, true)

	w, resp := do(t, h, http.MethodPost, "/debug/memory/running-low", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "RUNNING_LOW", resp.Data.(map[string]any)["level"])

	w, _ = do(t, h, http.MethodPost, "/debug/memory/80", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w, resp = do(t, h, http.MethodPost, "/debug/memory/sideways", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp.Status)

	assert.Equal(t, []browser.MemoryLevel{browser.TrimMemoryRunningLow, browser.TrimMemoryComplete}, app.levels)
}

func TestDebugPush(t *testing.T) {
	app := newFakeApp()
	h := NewRouter(app, Sources{}, true)

	w, _ := do(t, h, http.MethodPost, "/debug/push/chat", "hello")
	assert.Equal(t, http.StatusConflict, w.Code)

	relay := push.NewRelay()
	obs := &recordingObserver{}
	relay.Register(obs)
	require.NoError(t, relay.Initialize(context.Background()))
	app.processor.Install(relay)

	w, resp := do(t, h, http.MethodPost, "/debug/push/chat", "hello")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"chat"}, obs.scopes)
	assert.Equal(t, []string{"hello"}, obs.payloads)
}

func TestServerStartStop(t *testing.T) {
	app := newFakeApp()
	s := NewServer(Config{Port: 0}, app, Sources{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	var addr string
	require.Eventually(t, func() bool {
		addr = s.Addr()
		return !strings.HasSuffix(addr, ":0")
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
	assert.NoError(t, s.Stop(context.Background()))
}
