package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/judgeportal/internal/api/response"
)

// SessionCounter counts live sessions
type SessionCounter interface {
	CountSessions(ctx context.Context) (int, error)
}

// ClientCounter counts connected real-time clients
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler reports liveness and, when wired, session and client counts
type HealthHandler struct {
	sessions SessionCounter
	clients  ClientCounter
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler. Either counter may be nil.
func NewHealthHandler(sessions SessionCounter, clients ClientCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		clients:  clients,
		logger:   logger,
	}
}

// Get handles GET /api/v1/health. A failing session store answers 503.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	health := response.Health{Status: "ok"}

	if h.sessions != nil {
		n, err := h.sessions.CountSessions(r.Context())
		if err != nil {
			h.logger.Error("session store unhealthy", slog.Any("error", err))
			response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
			return
		}
		health.Sessions = &n
	}
	if h.clients != nil {
		n := h.clients.ClientCount()
		health.Clients = &n
	}

	response.JSON(w, http.StatusOK, health)
}
