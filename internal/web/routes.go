package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/sign-vision/internal/web/handlers"
	"github.com/kozaktomas/sign-vision/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(sessionManager, s.services.Users)
	analyzeHandler := handlers.NewAnalyzeHandler(s.config, s.services.Orchestrator)
	signsHandler := handlers.NewSignsHandler(s.config, s.services.Orchestrator, s.services.Signs,
		s.jobManager, s.services.ReferenceDescriber, s.services.Usage)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// All other routes require an active user
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager, s.services.Users))

			r.Get("/auth/me", authHandler.Me)
			r.Post("/analyze", analyzeHandler.Analyze)

			// Reference store administration
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/signs", signsHandler.List)
				r.Post("/signs", signsHandler.Add)
				r.Post("/signs/rebuild-cache", signsHandler.RebuildCache)
				r.Put("/signs/{name}", signsHandler.Replace)
				r.Delete("/signs/{id}", signsHandler.Delete)

				// Regenerate descriptions (long-running)
				r.Post("/signs/regenerate", signsHandler.Regenerate)
				r.Get("/signs/regenerate/{jobId}", signsHandler.JobStatus)
				r.Get("/signs/regenerate/{jobId}/events", signsHandler.JobEvents)
				r.Delete("/signs/regenerate/{jobId}", signsHandler.CancelJob)
			})
		})
	})

	// Demonstration videos, readable without a session so players can stream them
	avatars := http.StripPrefix("/media/avatars/", http.FileServer(http.Dir(s.config.Storage.AvatarsDir())))
	s.router.Get("/media/avatars/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		avatars.ServeHTTP(w, r)
	})
}
