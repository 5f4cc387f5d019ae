package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/platform/middleware"
	"pulse/pkg/platform/httputil"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Auth      *AuthHandler
	Track     *TrackHandler
	Analytics *AnalyticsHandler
	Verifier  middleware.TokenVerifier
	Logger    *slog.Logger

	// AllowedOrigin is mirrored in CORS headers.
	AllowedOrigin string

	// Checks run on /healthz, keyed by dependency name. Nil values are
	// skipped so optional backends do not fail readiness.
	Checks map[string]HealthChecker
}

// NewRouter assembles the full HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"service": "pulse",
			"status":  "running",
		})
	})
	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Verifier, cfg.Logger))
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/me", cfg.Auth.Me)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Verifier, cfg.Logger))
		r.Post("/track", cfg.Track.Track)
		r.Get("/analytics", cfg.Analytics.Query)
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, status, body)
	}
}
