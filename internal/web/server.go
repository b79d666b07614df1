package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
	"github.com/kozaktomas/sign-vision/internal/web/handlers"
	"github.com/kozaktomas/sign-vision/internal/web/middleware"
)

// Services are the application components the HTTP layer calls into.
type Services struct {
	Orchestrator *pipeline.Orchestrator
	Signs        database.SignReader
	Users        database.UserReader
	// ReferenceDescriber describes videos for the admin regenerate job.
	ReferenceDescriber ai.VideoDescriber
	// Usage is optional.
	Usage handlers.UsageSource
}

// Server represents the web server
type Server struct {
	config         *config.Config
	services       Services
	router         *chi.Mux
	httpServer     *http.Server
	jobManager     *handlers.JobManager
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, services Services, port int, host string, sessionSecret string, sessionRepo middleware.SessionRepository) *Server {
	r := chi.NewRouter()

	// Create job manager for async operations
	jobManager := handlers.NewJobManager()

	// Create session manager with optional persistence
	sessionManager := middleware.NewSessionManager(sessionSecret, sessionRepo)

	s := &Server{
		config:         cfg,
		services:       services,
		router:         r,
		jobManager:     jobManager,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.RequestTimeout))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	// Set up routes
	s.setupRoutes(sessionManager)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  2 * time.Minute, // video uploads
		WriteTimeout: constants.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	// Stop the session cleanup goroutine
	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	// Cancel running regenerate jobs
	for _, job := range s.jobManager.ListJobs() {
		job.Cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SessionManager returns the server's session manager.
func (s *Server) SessionManager() *middleware.SessionManager {
	return s.sessionManager
}
