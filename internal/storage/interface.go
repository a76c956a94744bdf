package storage

import (
	"context"

	"github.com/mcoot/judgeportal/internal/model"
)

// SessionStore persists the session table. The in-memory backend lives for
// the process lifetime; the Redis backend is the substitution point for
// sessions shared across restarts or instances.
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	// GetSession returns model.ErrSessionNotFound for unknown tokens
	GetSession(ctx context.Context, token string) (*model.Session, error)
	// DeleteSession is a no-op for unknown tokens
	DeleteSession(ctx context.Context, token string) error
	CountSessions(ctx context.Context) (int, error)
}
