package diagnostics

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/bootstrap"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/lifecycle"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/push"
	"github.com/marmos91/kestrel/pkg/registry"
	"github.com/marmos91/kestrel/pkg/session"
)

// maxPushPayload bounds debug push bodies.
const maxPushPayload = 64 << 10

// App is the running application. *bootstrap.Application implements it.
type App interface {
	Signal() *lifecycle.Signal
	Phase() bootstrap.Phase
	Role() process.Role
	Steps() []bootstrap.StepResult
	Registry() *registry.Registry
	OnTrimMemory(level browser.MemoryLevel)
}

var _ App = (*bootstrap.Application)(nil)

// Sources supplies the optional sections of the status report.
type Sources struct {
	Sessions    func() (session.Stats, bool)
	Permissions func() []browser.PermissionRequest
	Version     string
}

// Status is the body of GET /status.
type Status struct {
	Version            string                 `json:"version"`
	Role               string                 `json:"role"`
	Phase              string                 `json:"phase"`
	Ready              bool                   `json:"ready"`
	Uptime             string                 `json:"uptime"`
	Steps              []bootstrap.StepResult `json:"steps,omitempty"`
	Constructed        map[string]bool        `json:"constructed"`
	Sessions           *session.Stats         `json:"sessions,omitempty"`
	PendingPermissions int                    `json:"pending_permissions"`
	Process            *process.Usage         `json:"process,omitempty"`
}

type handler struct {
	app     App
	sources Sources
	started time.Time
}

// liveness handles GET /health.
func (h *handler) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "kestrel",
		"role":    h.app.Role().String(),
	}))
}

// readiness handles GET /health/ready. It succeeds once every subsystem
// has been wired.
func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	phase := h.app.Phase().String()
	if !h.app.Signal().IsSet() {
		writeJSON(w, http.StatusServiceUnavailable,
			unhealthyResponse("subsystems not wired", map[string]string{"phase": phase}))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"phase": phase}))
}

// status handles GET /status.
func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Version:     h.sources.Version,
		Role:        h.app.Role().String(),
		Phase:       h.app.Phase().String(),
		Ready:       h.app.Signal().IsSet(),
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		Steps:       h.app.Steps(),
		Constructed: h.app.Registry().Snapshot(),
	}
	if h.sources.Sessions != nil {
		if stats, ok := h.sources.Sessions(); ok {
			st.Sessions = &stats
		}
	}
	if h.sources.Permissions != nil {
		st.PendingPermissions = len(h.sources.Permissions())
	}
	if usage, err := process.CurrentUsage(r.Context()); err == nil {
		st.Process = &usage
	} else {
		logger.DebugCtx(r.Context(), "Process usage unavailable", logger.Err(err))
	}

	writeJSON(w, http.StatusOK, okResponse(st))
}

// debugPush handles POST /debug/push/{scope}. The request body is the
// payload.
func (h *handler) debugPush(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if scope == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("scope is required"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	processor, err := h.app.Registry().PushProcessor()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}
	if err := processor.OnMessage(r.Context(), scope, payload); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, push.ErrNotConfigured) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse(err.Error()))
		return
	}

	logger.InfoCtx(r.Context(), "Debug push delivered", logger.Scope(scope), logger.KeyPayloadBytes, len(payload))
	writeJSON(w, http.StatusAccepted, okResponse(map[string]any{"scope": scope, "bytes": len(payload)}))
}

// debugMemory handles POST /debug/memory/{level}. level is a name such as
// RUNNING_LOW or a number.
func (h *handler) debugMemory(w http.ResponseWriter, r *http.Request) {
	level, err := browser.ParseMemoryLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	h.app.OnTrimMemory(level)
	writeJSON(w, http.StatusAccepted, okResponse(map[string]string{"level": level.String()}))
}
