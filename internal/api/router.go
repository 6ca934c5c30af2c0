package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subgen/backend/internal/api/handlers"
	"github.com/subgen/backend/internal/api/middleware"
	"github.com/subgen/backend/internal/auth"
	"github.com/subgen/backend/internal/config"
	"github.com/subgen/backend/internal/db"
	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/media"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, controller *job.Controller, extractor *media.Extractor) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	jobHandler := handlers.NewJobHandler(controller, database)
	segmentHandler := handlers.NewSegmentHandler(controller)
	subtitleHandler := handlers.NewSubtitleHandler(controller)
	mediaHandler := handlers.NewMediaHandler(extractor)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Auth (public, rate limited)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(4<<10)).
			Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.MaxBodySize(1 << 20))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Read-only pipeline state (any role)
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/active", jobHandler.ActiveJob)
			r.Get("/jobs/events", jobHandler.Events)
			r.Get("/segments", segmentHandler.ListSegments)
			r.Get("/export", subtitleHandler.Export)
			r.Get("/media/info", mediaHandler.Info)

			// Pipeline mutation requires an editing role
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", "editor"))

				r.Post("/jobs", jobHandler.StartJob)
				r.Delete("/jobs/active", jobHandler.CancelJob)
				r.Post("/jobs/active/complete", jobHandler.CompleteJob)
				r.Put("/segments/{index}", segmentHandler.EditSegment)
				r.Post("/embed", subtitleHandler.Embed)
			})
		})
	})

	return r
}
