//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"greenlight/internal/domain"
	"greenlight/internal/session"
	"greenlight/pkg/platform/sentinel"
	"greenlight/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	store  *session.RedisStore
	events *session.RedisEventStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedis(s.redis.Client)
	s.events = session.NewRedisEvents(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestGetOrCreateRoundTrip() {
	ctx := context.Background()
	id := uuid.NewString()

	created, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StageStart, created.Stage)

	created.Stage = domain.StagePrecheck
	created.PANTail = "234F"
	s.Require().NoError(s.store.Save(ctx, created))

	loaded, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StagePrecheck, loaded.Stage)
	s.Equal("234F", loaded.PANTail)
	s.Equal(1, loaded.Version)
}

func (s *RedisStoreSuite) TestStaleSaveConflicts() {
	ctx := context.Background()
	id := uuid.NewString()

	first, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	second, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)

	first.Stage = domain.StagePrecheck
	s.Require().NoError(s.store.Save(ctx, first))

	second.Stage = domain.StageManualReview
	err = s.store.Save(ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestEventOrderPreserved() {
	ctx := context.Background()
	id := uuid.NewString()

	for i, stage := range []string{"precheck", "underwrite", "sanction"} {
		err := s.events.Append(ctx, domain.Event{
			SessionID: id,
			Type:      "stage",
			Payload:   stage,
			Timestamp: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		s.Require().NoError(err)
	}

	events, err := s.events.ListBySession(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("precheck", events[0].Payload)
	s.Equal("sanction", events[2].Payload)
}
