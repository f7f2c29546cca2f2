package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/push"
	"github.com/marmos91/kestrel/pkg/registry"
)

var errBoom = errors.New("boom")

// recorder keeps the order in which collaborators were touched.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeEngine struct {
	rec     *recorder
	warmErr error
	panics  bool

	mu        sync.Mutex
	delivered []string
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) WarmUp(context.Context) error {
	e.rec.add("engine.warm_up")
	if e.panics {
		panic("engine runtime missing")
	}
	return e.warmErr
}

func (e *fakeEngine) CreateEngineSession(_ context.Context, url string) (browser.EngineSession, error) {
	return &fakeEngineSession{url: url}, nil
}

func (e *fakeEngine) DeliverPush(_ context.Context, scope string, _ []byte) error {
	e.mu.Lock()
	e.delivered = append(e.delivered, scope)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) deliveries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.delivered...)
}

type fakeEngineSession struct {
	url    string
	closed bool
}

func (s *fakeEngineSession) URL() string { return s.url }

func (s *fakeEngineSession) Close() error {
	s.closed = true
	return nil
}

type fakeAddonManager struct{}

func (fakeAddonManager) Installed() []browser.Addon { return nil }

type fakeAddonUpdater struct {
	mu       sync.Mutex
	requests []browser.PermissionRequest
}

func (u *fakeAddonUpdater) OnUpdatePermissionRequest(req browser.PermissionRequest) {
	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.mu.Unlock()
}

type fakeProvider struct {
	rec *recorder
	err error
}

func (p *fakeProvider) Initialize(browser.AddonManager, browser.AddonUpdater) error {
	p.rec.add("addons.initialize")
	return p.err
}

type fakeExtensionSupport struct {
	rec       *recorder
	err       error
	panics    bool
	runtime   browser.Engine
	store     browser.Store
	callbacks browser.ExtensionCallbacks
}

func (s *fakeExtensionSupport) Initialize(runtime browser.Engine, store browser.Store, cb browser.ExtensionCallbacks) error {
	s.rec.add("webext.initialize")
	if s.panics {
		panic("extension runtime exploded")
	}
	s.runtime, s.store, s.callbacks = runtime, store, cb
	return s.err
}

type fakeTelemetry struct {
	rec  *recorder
	name string
	err  error
}

func (t *fakeTelemetry) Name() string { return t.name }

func (t *fakeTelemetry) Start(context.Context) error {
	t.rec.add("telemetry." + t.name)
	return t.err
}

func (t *fakeTelemetry) Stop(context.Context) error { return nil }

type fakeStore struct {
	mu      sync.Mutex
	actions []browser.Action
}

func (s *fakeStore) Dispatch(a browser.Action) {
	s.mu.Lock()
	s.actions = append(s.actions, a)
	s.mu.Unlock()
}

func (s *fakeStore) dispatched() []browser.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]browser.Action(nil), s.actions...)
}

type fakeIcons struct {
	mu     sync.Mutex
	levels []browser.MemoryLevel
}

func (c *fakeIcons) OnTrimMemory(level browser.MemoryLevel) {
	c.mu.Lock()
	c.levels = append(c.levels, level)
	c.mu.Unlock()
}

func (c *fakeIcons) trimmed() []browser.MemoryLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]browser.MemoryLevel(nil), c.levels...)
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions []*browser.Session
	selected string
}

func (m *fakeSessions) Add(s *browser.Session, selected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	if selected {
		m.selected = s.ID
	}
}

func (m *fakeSessions) FindByID(id string) (*browser.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (m *fakeSessions) Sessions() []*browser.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*browser.Session(nil), m.sessions...)
}

type fakeTabs struct {
	mu       sync.Mutex
	removed  []string
	selected []string
}

func (t *fakeTabs) RemoveTab(id string) {
	t.mu.Lock()
	t.removed = append(t.removed, id)
	t.mu.Unlock()
}

func (t *fakeTabs) SelectTab(s *browser.Session) {
	t.mu.Lock()
	t.selected = append(t.selected, s.ID)
	t.mu.Unlock()
}

// fakeFeature is a push relay that records initialization.
type fakeFeature struct {
	*push.Relay
	rec     *recorder
	initErr error
}

func (f *fakeFeature) Initialize(ctx context.Context) error {
	f.rec.add("push.initialize")
	if f.initErr != nil {
		return f.initErr
	}
	return f.Relay.Initialize(ctx)
}

type fakeAccounts struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (a *fakeAccounts) HandlePushMessage(_ context.Context, payload []byte) error {
	a.mu.Lock()
	a.payloads = append(a.payloads, payload)
	a.mu.Unlock()
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	phases   []string
	steps    map[string]error
	optional []string
	pressure []string
	ready    bool
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{steps: make(map[string]error)}
}

func (m *fakeMetrics) SetPhase(phase string) {
	m.mu.Lock()
	m.phases = append(m.phases, phase)
	m.mu.Unlock()
}

func (m *fakeMetrics) ObserveStep(step string, _ time.Duration, err error) {
	m.mu.Lock()
	m.steps[step] = err
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordOptionalFailure(step string) {
	m.mu.Lock()
	m.optional = append(m.optional, step)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordMemoryPressure(level string, handled bool) {
	m.mu.Lock()
	if handled {
		m.pressure = append(m.pressure, level)
	} else {
		m.pressure = append(m.pressure, "ignored:"+level)
	}
	m.mu.Unlock()
}

func (m *fakeMetrics) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

type fakeCrash struct {
	mu        sync.Mutex
	installed []bool
	recorded  []error
}

func (c *fakeCrash) Install(enabled bool) {
	c.mu.Lock()
	c.installed = append(c.installed, enabled)
	c.mu.Unlock()
}

func (c *fakeCrash) Record(_ context.Context, _ string, err error, _ []byte, _ bool) (string, error) {
	c.mu.Lock()
	c.recorded = append(c.recorded, err)
	c.mu.Unlock()
	return "crash-1", nil
}

func (c *fakeCrash) RecordPanic(recovered any, _ []byte) {
	c.mu.Lock()
	c.recorded = append(c.recorded, errors.New("panic"))
	c.mu.Unlock()
}

// fakeScheduler captures scheduled tasks so tests decide when they run.
type fakeScheduler struct {
	mu     sync.Mutex
	err    error
	delays []time.Duration
	posted []func()
}

func (s *fakeScheduler) Post(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.posted = append(s.posted, fn)
	return nil
}

func (s *fakeScheduler) PostDelayed(d time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delays = append(s.delays, d)
	s.posted = append(s.posted, fn)
	return nil
}

func (s *fakeScheduler) tasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posted)
}

// runAll runs every captured task, as the main loop would.
func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	tasks := s.posted
	s.posted = nil
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

// fixture is a registry of fakes.
type fixture struct {
	rec       *recorder
	engine    *fakeEngine
	provider  *fakeProvider
	updater   *fakeAddonUpdater
	ext       *fakeExtensionSupport
	telemetry []*fakeTelemetry
	store     *fakeStore
	icons     *fakeIcons
	sessions  *fakeSessions
	tabs      *fakeTabs
	processor *push.Processor
	feature   *fakeFeature
	accounts  *fakeAccounts
	metrics   *fakeMetrics

	pushConfigured bool
	storeErr       error
	storePanics    bool
	processorErr   error
}

func newFixture() *fixture {
	rec := &recorder{}
	return &fixture{
		rec:      rec,
		engine:   &fakeEngine{rec: rec},
		provider: &fakeProvider{rec: rec},
		updater:  &fakeAddonUpdater{},
		ext:      &fakeExtensionSupport{rec: rec},
		telemetry: []*fakeTelemetry{
			{rec: rec, name: "tracing"},
			{rec: rec, name: "profiling"},
		},
		store:          &fakeStore{},
		icons:          &fakeIcons{},
		sessions:       &fakeSessions{},
		tabs:           &fakeTabs{},
		processor:      push.NewProcessor(),
		feature:        &fakeFeature{Relay: push.NewRelay(), rec: rec},
		accounts:       &fakeAccounts{},
		metrics:        newFakeMetrics(),
		pushConfigured: true,
	}
}

func (f *fixture) registry() *registry.Registry {
	return registry.New(registry.Factories{
		Engine: func() (browser.Engine, error) { return f.engine, nil },
		AddonManager: func() (browser.AddonManager, error) {
			return fakeAddonManager{}, nil
		},
		AddonUpdater:  func() (browser.AddonUpdater, error) { return f.updater, nil },
		AddonProvider: func() (browser.AddonProvider, error) { return f.provider, nil },
		ExtensionSupport: func() (browser.ExtensionSupport, error) {
			return f.ext, nil
		},
		SessionManager: func() (browser.SessionManager, error) { return f.sessions, nil },
		Store: func() (browser.Store, error) {
			if f.storePanics {
				panic("store open failed")
			}
			if f.storeErr != nil {
				return nil, f.storeErr
			}
			return f.store, nil
		},
		TabsUseCases: func() (browser.TabsUseCases, error) { return f.tabs, nil },
		Icons:        func() (browser.IconCache, error) { return f.icons, nil },
		Telemetry: func() ([]browser.Telemetry, error) {
			out := make([]browser.Telemetry, len(f.telemetry))
			for i, t := range f.telemetry {
				out[i] = t
			}
			return out, nil
		},
		PushProcessor: func() (browser.PushProcessor, error) {
			if f.processorErr != nil {
				return nil, f.processorErr
			}
			return f.processor, nil
		},
		AccountManager: func() (browser.AccountManager, error) { return f.accounts, nil },
		Push: func() (push.Config, error) {
			if !f.pushConfigured {
				return push.NotConfigured(), nil
			}
			return push.Configured(f.feature), nil
		},
	})
}

func primaryGate() *process.Gate {
	return process.NewGate("kestrel", process.StaticIdentity("kestrel"))
}

func secondaryGate() *process.Gate {
	return process.NewGate("kestrel", process.StaticIdentity("kestrel:renderer"))
}

const accountScope = "chrome://fxa-push"
