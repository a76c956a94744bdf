package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/judgeportal/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSaveAndGetSession() {
	session := &model.Session{
		Token:     "tok1",
		Username:  "alice",
		Admin:     true,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	got, err := s.storage.GetSession(s.ctx, "tok1")
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
	s.True(got.Admin)
	s.True(session.CreatedAt.Equal(got.CreatedAt))
}

func (s *StorageSuite) TestSessionKeyLayout() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "tok1", Username: "alice"})

	s.True(s.mini.Exists("judge:session:tok1"))
}

func (s *StorageSuite) TestGetSessionNotFound() {
	_, err := s.storage.GetSession(s.ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestSessionsDoNotExpireByDefault() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "tok1", Username: "alice"})

	s.mini.FastForward(30 * 24 * time.Hour)

	_, err := s.storage.GetSession(s.ctx, "tok1")
	s.NoError(err)
}

func (s *StorageSuite) TestSessionTTLApplied() {
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour
	s.storage.cfg = cfg

	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "tok1", Username: "alice"})
	s.Equal(time.Hour, s.mini.TTL("judge:session:tok1"))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetSession(s.ctx, "tok1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteSession() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "tok1", Username: "alice"})

	s.Require().NoError(s.storage.DeleteSession(s.ctx, "tok1"))

	_, err := s.storage.GetSession(s.ctx, "tok1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteUnknownSessionIsNoop() {
	s.NoError(s.storage.DeleteSession(s.ctx, "missing"))
}

func (s *StorageSuite) TestCountSessions() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "a", Username: "alice"})
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "b", Username: "bob"})
	s.Require().NoError(s.mini.Set("unrelated", "x"))

	n, err := s.storage.CountSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}
