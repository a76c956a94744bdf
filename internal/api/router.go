package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/judgeportal/internal/api/handler"
	"github.com/mcoot/judgeportal/internal/api/middleware"
)

// AuthService is what the API needs from authentication
type AuthService interface {
	handler.AuthService
	middleware.SessionValidator
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    AuthService
	SnapshotSource handler.SnapshotSource
	// Optional counters reported by /health
	SessionCounter handler.SessionCounter
	ClientCounter  handler.ClientCounter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.AuthService)
	snapshotHandler := handler.NewSnapshotHandler(cfg.SnapshotSource)
	healthHandler := handler.NewHealthHandler(cfg.SessionCounter, cfg.ClientCounter, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Session routes (no auth required for logging in or out)
	api.HandleFunc("/session", sessionHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/session", sessionHandler.Logout).Methods(http.MethodDelete)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/me", sessionHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/snapshot", snapshotHandler.Get).Methods(http.MethodGet)

	return r
}
