package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcoot/judgeportal/internal/api/apierr"
	"github.com/mcoot/judgeportal/internal/api/middleware"
	"github.com/mcoot/judgeportal/internal/api/request"
	"github.com/mcoot/judgeportal/internal/api/response"
	"github.com/mcoot/judgeportal/internal/model"
)

// AuthService is the part of the auth service the API uses
type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// SessionHandler handles session endpoints
type SessionHandler struct {
	authService AuthService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(authService AuthService) *SessionHandler {
	return &SessionHandler{authService: authService}
}

// Login handles POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, apierr.NewInvalidRequestError(err.Error()))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SessionFromModel(session))
}

// Logout handles DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.ExtractToken(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Me handles GET /api/v1/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.MustGetViewer(r.Context())
	response.JSON(w, http.StatusOK, response.ViewerFromModel(viewer))
}
