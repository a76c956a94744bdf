package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/auth"
	"github.com/mcoot/judgeportal/internal/web/middleware"
)

// maxLoginBody bounds the login request body
const maxLoginBody = 64 << 10

// AuthService is the part of the auth service the login pages use
type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// LoginData is passed to the login view
type LoginData struct {
	Username string
}

// LoginResponse is the JSON reply to a login attempt. SessionID is null
// when the credentials were rejected.
type LoginResponse struct {
	SessionID *string `json:"sessionId"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthHandler handles the login and logout routes
type AuthHandler struct {
	authService AuthService
	renderer    *Renderer
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService, renderer *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		renderer:    renderer,
		logger:      logger.With(slog.String("component", "web-auth")),
	}
}

// LoginPage renders the login page, or sends authenticated viewers home
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetViewer(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.renderer.Render(w, "login.html", LoginData{})
}

// Login checks the posted credentials. It always answers 200 with
// {"sessionId": token} on success or {"sessionId": null} otherwise, and
// sets the session cookie on success.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err != nil {
		h.writeLogin(w, nil)
		return
	}

	creds, ok := parseCredentials(body)
	if !ok {
		h.logger.Debug("malformed login body")
		h.writeLogin(w, nil)
		return
	}

	session, err := h.authService.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("login failed",
				slog.String("username", creds.Username),
				slog.Any("error", err))
		}
		h.writeLogin(w, nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
	})
	h.writeLogin(w, &session.Token)
}

// Logout deletes the session if any, clears the cookie and goes home
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", slog.Any("error", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) writeLogin(w http.ResponseWriter, token *string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{SessionID: token})
}

// parseCredentials accepts either a raw JSON body or a form-encoded body
// whose first key is the JSON document
func parseCredentials(body []byte) (credentials, bool) {
	var creds credentials
	text := strings.TrimSpace(string(body))
	if text == "" {
		return creds, false
	}

	if json.Unmarshal([]byte(text), &creds) == nil {
		return creds, true
	}

	key, _, _ := strings.Cut(text, "&")
	key, _, _ = strings.Cut(key, "=")
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return creds, false
	}
	if err := json.Unmarshal([]byte(decoded), &creds); err != nil {
		return creds, false
	}
	return creds, true
}
