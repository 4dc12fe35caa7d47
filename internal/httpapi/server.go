package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cfxstock/botfleet/internal/metrics"
	"github.com/cfxstock/botfleet/internal/tracing"
)

// ServerConfig bundles the HTTP ingress tunables (SPEC_FULL.md §6
// [server]).
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	MaxInFlight     int
	TracingEnabled  bool
}

// Server is the HTTP ingress for the worker fleet: the heartbeat endpoint
// plus the ambient /healthz and /metrics endpoints. Grounded directly on
// the teacher's internal/proxy/server.go — same router construction, same
// middleware-stack shape, same Router()/Start()/Shutdown(ctx) surface.
type Server struct {
	router  chi.Router
	httpSrv *http.Server
}

// NewServer builds the middleware stack inside-out as SPEC_FULL.md's A7
// ADD specifies: RealIP -> Recoverer -> tracing span -> load-shed -> a
// per-request timeout -> the handler, so a shed request never occupies a
// timeout slot.
func NewServer(h *Handler, cfg ServerConfig, collector *metrics.Collector) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(tracing.HTTPMiddleware)
	}
	r.Use(loadShed(cfg.MaxInFlight))

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	timeout := func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, requestTimeout, `{"status":503,"message":"request timed out"}`)
	}

	r.Route("/heartbeat", func(r chi.Router) {
		r.With(timeout, recordHeartbeatMetrics(collector)).Get("/{cfx_license}", h.Heartbeat)
	})
	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", metrics.PrometheusHandler(collector))

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{router: r, httpSrv: httpSrv}
}

// Router returns the underlying chi router, for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins serving and blocks until the server stops or errors.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
