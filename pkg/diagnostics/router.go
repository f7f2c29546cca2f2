package diagnostics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/metrics"
)

// NewRouter builds the diagnostics routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Ready once every subsystem has been wired
//   - GET /status - Bootstrap status report
//   - GET /metrics - Prometheus metrics, when metrics are enabled
//   - POST /debug/push/{scope} - Inject a push message (debug only)
//   - POST /debug/memory/{level} - Inject memory pressure (debug only)
func NewRouter(app App, sources Sources, enableDebug bool) http.Handler {
	h := &handler{app: app, sources: sources, started: time.Now()}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.liveness)
		r.Get("/ready", h.readiness)
	})
	r.Get("/status", h.status)

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	if enableDebug {
		r.Route("/debug", func(r chi.Router) {
			r.Post("/push/{scope}", h.debugPush)
			r.Post("/memory/{level}", h.debugMemory)
		})
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/status", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("Diagnostics request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
