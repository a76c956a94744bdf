package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/judgeportal/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
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
	s.Equal(session.CreatedAt, got.CreatedAt)
}

func (s *StorageSuite) TestGetSessionNotFound() {
	_, err := s.storage.GetSession(s.ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestReturnedSessionIsACopy() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "tok1", Username: "alice"})

	got, _ := s.storage.GetSession(s.ctx, "tok1")
	got.Username = "mallory"

	again, _ := s.storage.GetSession(s.ctx, "tok1")
	s.Equal("alice", again.Username)
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

	n, err := s.storage.CountSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *StorageSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := string(rune('a' + i%26))
			_ = s.storage.SaveSession(s.ctx, &model.Session{Token: token, Username: "u"})
			_, _ = s.storage.GetSession(s.ctx, token)
			_ = s.storage.DeleteSession(s.ctx, token)
		}(i)
	}
	wg.Wait()
}
