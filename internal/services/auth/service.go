package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/judgeportal/internal/dependencies/clock"
	"github.com/mcoot/judgeportal/internal/dependencies/random"
	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/accounts"
	"github.com/mcoot/judgeportal/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
)

const (
	tokenLength   = 32
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// AccountReader looks up accounts by username
type AccountReader interface {
	Get(ctx context.Context, username string) (model.Account, error)
}

// Service handles authentication and session management
type Service struct {
	accounts AccountReader
	sessions storage.SessionStore
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// New creates a new AuthService
func New(accounts AccountReader, sessions storage.SessionStore, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "auth")),
	}
}

// Login authenticates against the account store and creates a session.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !accounts.CheckPassword(account, password) {
		return nil, ErrInvalidCredentials
	}

	session := &model.Session{
		Token:     s.random.String(tokenLength, tokenAlphabet),
		Username:  username,
		Admin:     account.Admin,
		CreatedAt: s.clock.Now(),
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		slog.String("username", username),
		slog.Bool("admin", account.Admin))

	return session, nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return session, nil
}

// Logout removes a session; unknown tokens are ignored
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}
