package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/server/handlers"
	servermw "github.com/mattcoley/propertydetails/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.NewVersionHandler(s.upstreamMode))
	s.router.Get("/metrics", MetricsHandler)

	if s.lookup != nil {
		s.router.Group(func(r chi.Router) {
			// authentication runs first so the throttle can key on the caller
			r.Use(servermw.BearerAuth(s.authTokens))
			if s.clientLimit != nil {
				r.Use(s.clientLimit.Middleware)
			}
			r.Method("GET", "/property/details", &handlers.PropertyDetailsHandler{Service: s.lookup})
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes gofulmen's signal endpoint when a token is set.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no PROPERTYDETAILS_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
