package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"greenlight/internal/domain"
	"greenlight/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestGetOrCreate() {
	s.Run("creates at stage start", func() {
		sess, err := s.store.GetOrCreate(s.ctx, "s1")
		s.Require().NoError(err)
		s.Equal(domain.StageStart, sess.Stage)
		s.Equal(0, sess.Version)
		s.Empty(sess.History)
	})

	s.Run("returns existing session", func() {
		first, err := s.store.GetOrCreate(s.ctx, "s2")
		s.Require().NoError(err)
		first.Stage = domain.StagePrecheck
		s.Require().NoError(s.store.Save(s.ctx, first))

		again, err := s.store.GetOrCreate(s.ctx, "s2")
		s.Require().NoError(err)
		s.Equal(domain.StagePrecheck, again.Stage)
	})
}

func (s *MemoryStoreSuite) TestSaveBumpsVersion() {
	sess, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)

	sess.Stage = domain.StagePrecheck
	s.Require().NoError(s.store.Save(s.ctx, sess))
	s.Equal(1, sess.Version)

	sess.Stage = domain.StageVerify
	s.Require().NoError(s.store.Save(s.ctx, sess))
	s.Equal(2, sess.Version)
}

func (s *MemoryStoreSuite) TestSaveConflict() {
	a, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)
	b, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)

	a.Stage = domain.StagePrecheck
	s.Require().NoError(s.store.Save(s.ctx, a))

	// b still carries the old version; its save must lose.
	b.Stage = domain.StageDone
	err = s.store.Save(s.ctx, b)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The first writer's state survived.
	current, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(domain.StagePrecheck, current.Stage)
}

func (s *MemoryStoreSuite) TestCallersDoNotShareMemory() {
	sess, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)
	sess.AppendMessage("user", "hello")
	s.Require().NoError(s.store.Save(s.ctx, sess))

	loaded, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)
	loaded.History[0].Content = "mutated"

	fresh, err := s.store.GetOrCreate(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal("hello", fresh.History[0].Content)
}

type EventStoreSuite struct {
	suite.Suite
	store *InMemoryEventStore
	ctx   context.Context
}

func TestEventStoreSuite(t *testing.T) {
	suite.Run(t, new(EventStoreSuite))
}

func (s *EventStoreSuite) SetupTest() {
	s.store = NewInMemoryEventStore()
	s.ctx = context.Background()
}

func (s *EventStoreSuite) TestAppendPreservesOrder() {
	for _, typ := range []string{"stage", "precheck", "stage"} {
		s.Require().NoError(s.store.Append(s.ctx, domain.Event{SessionID: "s1", Type: typ}))
	}
	events, err := s.store.ListBySession(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("stage", events[0].Type)
	s.Equal("precheck", events[1].Type)

	other, err := s.store.ListBySession(s.ctx, "s2")
	s.Require().NoError(err)
	s.Empty(other)
}
