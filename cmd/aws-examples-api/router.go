package main

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"aws-examples-api/internal/auth"
	"aws-examples-api/internal/config"
	"aws-examples-api/internal/http/docs"
	"aws-examples-api/internal/http/handler"
	"aws-examples-api/internal/http/httperr"
	"aws-examples-api/internal/http/middleware"
	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/observability/requestid"
	"aws-examples-api/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps holds what buildRouter needs. Nil handlers leave their routes
// unmounted, so tests can build a router from Cfg and Log alone.
type RouterDeps struct {
	Cfg         *config.Config
	Log         *logger.Logger
	Extractor   *auth.Extractor
	RateLimiter middleware.RateLimiter // nil disables rate limiting
	Metrics     *telemetry.Metrics

	// Handlers
	MessageHandler *handler.MessageHandler
	HealthHandler  *handler.HealthHandler
	DebugHandler   *handler.DebugHandler
}

// buildRouter builds the chi.Router with all middlewares and routes.
func buildRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(deps.Log))
	r.Use(middleware.RecoveryMiddleware(deps.Log))
	r.Use(telemetry.OTelMiddleware(deps.Cfg.OTELServiceName))
	if deps.Metrics != nil {
		r.Use(telemetry.MetricsMiddleware(deps.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.NotFound404(w, r.Context(), "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperr.MethodNotAllowed405(w, r.Context(), "method not allowed")
	})

	health := deps.HealthHandler
	if health == nil {
		health = handler.NewHealthHandler(nil)
	}

	// Public routes
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.With(metricsAuth(deps.Cfg.MetricsToken)).Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/openapi.yaml", docs.OpenAPIHandler().ServeHTTP)
	r.Get("/docs", docs.ScalarDocsHandler("/openapi.yaml").ServeHTTP)

	identity := identityMiddleware(deps)

	// Debug routes (dev-only)
	if deps.Cfg.IsDev() && deps.DebugHandler != nil {
		r.Route("/debug", func(r chi.Router) {
			r.With(identity).Get("/identity", deps.DebugHandler.GetIdentity)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.Cfg.GetCORSAllowedOrigins(),
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestid.HeaderRequestID},
			ExposedHeaders: []string{requestid.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			MaxAge:         300,
		}))
		if deps.RateLimiter != nil {
			r.Use(middleware.RateLimitMiddleware(deps.RateLimiter, deps.Cfg.RateLimitPerClientPerMin))
		}

		if deps.MessageHandler != nil {
			r.With(identity).Get("/messages", deps.MessageHandler.GetMessages)
			r.Get("/healthz", deps.MessageHandler.Healthz)
		}
	})

	return r
}

// identityMiddleware returns the forwarded identity extractor, or a no-op
// when none is configured and every request is anonymous
func identityMiddleware(deps RouterDeps) func(http.Handler) http.Handler {
	if deps.Extractor == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.IdentityMiddleware(deps.Extractor, deps.Cfg.OIDCDataHeader)
}

// metricsAuth guards /metrics with token, passed either as X-Metrics-Token or
// as a bearer token. An empty token leaves the endpoint open.
func metricsAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Metrics-Token")
			if provided == "" {
				provided = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				httperr.Unauthorized401(w, r.Context(), "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
