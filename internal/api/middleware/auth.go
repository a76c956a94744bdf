package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/judgeportal/internal/api/apierr"
	"github.com/mcoot/judgeportal/internal/model"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"

	// sessionCookieName matches the cookie set by the web login
	sessionCookieName = "sessionId"
)

// SessionValidator resolves a session token
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*model.Session, error)
}

// Auth creates authentication middleware
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the session token from the request
func ExtractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// MustGetViewer returns the authenticated viewer or panics
func MustGetViewer(ctx context.Context) model.Viewer {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session.Viewer()
}
