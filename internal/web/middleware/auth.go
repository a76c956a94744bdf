package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/judgeportal/internal/model"
)

type contextKey string

const (
	viewerContextKey  contextKey = "viewer"
	sessionContextKey contextKey = "session"

	// SessionCookieName is the cookie holding the session token
	SessionCookieName = "sessionId"
)

// SessionValidator resolves a session token
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*model.Session, error)
}

// GetViewer returns the viewer of the request and whether one is authenticated
func GetViewer(ctx context.Context) (model.Viewer, bool) {
	viewer, ok := ctx.Value(viewerContextKey).(model.Viewer)
	return viewer, ok && !viewer.Anonymous()
}

// GetSession returns the session of the request, or nil
func GetSession(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// WithSession stores the session and its viewer in ctx
func WithSession(ctx context.Context, session *model.Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return context.WithValue(ctx, viewerContextKey, session.Viewer())
}

// Auth returns middleware that requires a valid session.
// Anything else is redirected to the login page before the handler runs.
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromCookie(r, sessions)
			if session == nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// OptionalAuth returns middleware that attempts authentication but doesn't require it
func OptionalAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session := sessionFromCookie(r, sessions); session != nil {
				r = r.WithContext(WithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFromCookie(r *http.Request, sessions SessionValidator) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}

	session, err := sessions.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return session
}
