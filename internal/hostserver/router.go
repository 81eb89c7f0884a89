package hostserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restatevm/sharedcore/internal/logger"
	"github.com/restatevm/sharedcore/internal/metrics"
)

// NewRouter builds the chi router for s: the VM-driving invocation endpoint
// plus the host's own unauthenticated discovery/health/metrics surface,
// mirroring the teacher's pkg/api.NewRouter middleware stack and route-group
// shape (internal/vm never sees HTTP, this is the seam that gives it a
// socket).
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.liveness)
		r.Get("/ready", s.readiness)
	})

	r.Get("/discover", s.discover)

	r.Post("/invoke/{service}/{handler}", s.invokeHandler)

	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger logs request start/completion via internal/logger, matching
// the teacher's pkg/api.requestLogger middleware.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("host request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("host request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", logger.Duration(start),
		)
	})
}
