package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/judgeportal/internal/web/handler"
	"github.com/mcoot/judgeportal/internal/web/middleware"
)

// AuthService is what the web routes need from authentication
type AuthService interface {
	handler.AuthService
	middleware.SessionValidator
}

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService AuthService
	Streamer    handler.Streamer
	WebDir      string // Templates and static assets
}

// staticFiles are the assets served from WebDir, by route
var staticFiles = map[string]string{
	"/styles.css":      "text/css; charset=utf-8",
	"/app.js":          "text/javascript; charset=utf-8",
	"/imgs/about.png":  "image/png",
	"/imgs/submit.png": "image/png",
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	// Apply global middleware to all routes
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Unmatched routes bypass r.Use, so wrap them explicitly
	notFound := recoveryMiddleware(loggingMiddleware(http.HandlerFunc(handler.NotFound)))
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	// Create handlers
	renderer := handler.NewRenderer(cfg.WebDir, cfg.Logger)
	homeHandler := handler.NewHomeHandler(renderer)
	authHandler := handler.NewAuthHandler(cfg.AuthService, renderer, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.Streamer)

	// Static files
	for route, contentType := range staticFiles {
		r.Handle(route, handler.StaticFile(cfg.WebDir, route[1:], contentType)).Methods(http.MethodGet, http.MethodHead)
	}

	// Public routes
	public := r.NewRoute().Subrouter()
	public.Use(optionalAuthMiddleware)
	public.HandleFunc("/login", authHandler.LoginPage).Methods(http.MethodGet)
	public.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/logout", authHandler.Logout)

	// Protected routes (require auth)
	protected := r.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/", homeHandler.Home).Methods(http.MethodGet)
	protected.HandleFunc("/home", homeHandler.Home).Methods(http.MethodGet)
	protected.HandleFunc("/ws", streamHandler.WS).Methods(http.MethodGet)
	protected.HandleFunc("/events", streamHandler.Events).Methods(http.MethodGet)

	return r
}
