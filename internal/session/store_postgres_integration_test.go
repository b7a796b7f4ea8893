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

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *session.PostgresStore
	events   *session.PostgresEventStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = session.NewPostgres(s.postgres.DB)
	s.events = session.NewPostgresEvents(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "events", "sessions")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestGetOrCreateRoundTrip() {
	ctx := context.Background()
	id := uuid.NewString()

	created, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StageStart, created.Stage)
	s.Equal(0, created.Version)

	created.Stage = domain.StagePrecheck
	created.Name = "Asha Rao"
	created.AppendMessage("user", "hi")
	s.Require().NoError(s.store.Save(ctx, created))
	s.Equal(1, created.Version)

	loaded, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StagePrecheck, loaded.Stage)
	s.Equal("Asha Rao", loaded.Name)
	s.Require().Len(loaded.History, 1)
	s.Equal(1, loaded.Version)
}

func (s *PostgresStoreSuite) TestStaleSaveConflicts() {
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

	// The winning write is what persisted.
	loaded, err := s.store.GetOrCreate(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StagePrecheck, loaded.Stage)
}

func (s *PostgresStoreSuite) TestEventOrderPreserved() {
	ctx := context.Background()
	id := uuid.NewString()

	for _, stage := range []string{"precheck", "underwrite", "done"} {
		err := s.events.Append(ctx, domain.Event{
			SessionID: id,
			Type:      "stage",
			Payload:   stage,
			Timestamp: time.Now(),
		})
		s.Require().NoError(err)
	}

	events, err := s.events.ListBySession(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("precheck", events[0].Payload)
	s.Equal("done", events[2].Payload)
}
