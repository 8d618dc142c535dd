package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	apperrors "github.com/mattcoley/propertydetails/internal/errors"
	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/server/handlers"
	servermw "github.com/mattcoley/propertydetails/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	host     string
	port     int
	timeouts config.ServerConfig

	lookup       handlers.Lookuper
	upstreamMode string
	authTokens   []string
	clientLimit  *servermw.ClientLimiter
	health       *handlers.HealthManager
	adminToken   string
}

// Option configures a Server.
type Option func(*Server)

// WithLookup mounts the property details endpoint backed by lookup.
func WithLookup(lookup handlers.Lookuper, upstreamMode string) Option {
	return func(s *Server) {
		s.lookup = lookup
		s.upstreamMode = upstreamMode
	}
}

// WithAuthTokens requires one of tokens as a bearer token on lookups.
func WithAuthTokens(tokens []string) Option {
	return func(s *Server) { s.authTokens = tokens }
}

// WithClientLimiter throttles lookups per caller.
func WithClientLimiter(limiter *servermw.ClientLimiter) Option {
	return func(s *Server) { s.clientLimit = limiter }
}

// WithHealthManager serves health probes from manager.
func WithHealthManager(manager *handlers.HealthManager) Option {
	return func(s *Server) { s.health = manager }
}

// WithTimeouts applies the configured read/write/idle timeouts.
func WithTimeouts(cfg config.ServerConfig) Option {
	return func(s *Server) { s.timeouts = cfg }
}

// WithAdminToken enables POST /admin/signal guarded by token.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// New creates a new HTTP server instance
func New(host string, port int, opts ...Option) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID first for correlation, then metrics, then panic recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
		timeouts: config.ServerConfig{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = handlers.NewHealthManager(handlers.AppVersion)
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start listens on host:port and blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.timeouts.ReadTimeout,
		ReadHeaderTimeout: s.timeouts.ReadTimeout,
		WriteTimeout:      s.timeouts.WriteTimeout,
		IdleTimeout:       s.timeouts.IdleTimeout,
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server",
			zap.String("host", s.host),
			zap.Int("port", s.port),
			zap.String("addr", s.Addr()),
			zap.String("upstream_mode", s.upstreamMode))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
