package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/quizgen/internal/api/middleware"
	"github.com/phrazzld/quizgen/internal/api/shared"
	"github.com/phrazzld/quizgen/internal/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds the collaborators of the HTTP API.
type RouterConfig struct {
	Quizzes QuizService
	JWT     auth.JWTService
	Logger  *slog.Logger

	// Checks run on /health; any failure reports 503.
	Checks map[string]HealthCheck
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(cfg.Logger))
	r.Use(apiMiddleware.Metrics)
	r.Use(middleware.Recoverer)

	quizHandler := NewQuizHandler(cfg.Quizzes)
	authMiddleware := apiMiddleware.NewAuthMiddleware(cfg.JWT)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/quizzes", quizHandler.CreateQuiz)
		r.Get("/quizzes/{id}/generation", quizHandler.GetGenerationProgress)
	})

	r.Get("/health", healthHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// healthHandler runs every check and reports per-dependency status.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "unavailable"
				continue
			}
			results[name] = "ok"
		}

		body := map[string]interface{}{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		shared.RespondWithJSON(w, r, status, body)
	}
}
