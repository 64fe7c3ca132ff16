// Package http serves the dashboard summary over JSON.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
)

// Summarizer computes the dashboard summary for an owner id.
type Summarizer interface {
	Summary(ctx context.Context, ownerID string) (core.FinancialSummary, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	DashboardTimeout   time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *log.Logger
	Ready              Pinger
}

type Server struct {
	http.Server
	dashboard Summarizer
	verifier  *auth.Verifier
	ready     Pinger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	logger    *log.Logger
	timeout   time.Duration

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. The returned server is ready for
// ListenAndServe.
func NewServer(dash Summarizer, verifier *auth.Verifier, opts Options) (*Server, error) {
	if dash == nil {
		return nil, errors.New("http: nil summarizer")
	}
	if verifier == nil {
		return nil, errors.New("http: nil token verifier")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	proxies := opts.TrustedProxies
	if len(proxies) == 0 {
		proxies = security.DefaultTrustedProxies
	}
	ips, err := security.NewIPResolver(proxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		dashboard: dash,
		verifier:  verifier,
		ready:     opts.Ready,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:    trace.NewMiddleware(logger, ips.ClientIP),
		logger:    logger,
		timeout:   opts.DashboardTimeout,
	}

	authn := verifier.Middleware(s.unauthorized)
	limit := s.limiter.Middleware(ips.ClientIP, s.rateLimited)

	mux := http.NewServeMux()
	mux.Handle("/dashboard", limit(authn(http.HandlerFunc(s.handleDashboard))))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/", s.handleNotFound)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Request rejected by authentication",
		log.NewFields().WithError(err).WithErrorType(log.ErrorTypeAuth).ToSlice()...)
	w.Header().Set("WWW-Authenticate", `Bearer realm="bilancio"`)
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Too Many Requests")
}
