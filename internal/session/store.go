// Package session persists origination sessions and their event log. Stores
// are interface-driven so the orchestrator can run against in-memory, Redis,
// or PostgreSQL persistence without rewiring.
package session

import (
	"context"

	"greenlight/internal/domain"
)

// Store is the session record store. Save enforces optimistic versioning: it
// must reject a session whose Version does not match the persisted record
// with sentinel.ErrConflict, and bump Version on success. The orchestrator
// additionally serializes writers per session; the version check is the
// backstop that makes a lost update impossible rather than unlikely.
type Store interface {
	// GetOrCreate loads the session or creates it at stage start.
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error)
	// Save persists the session durably before returning.
	Save(ctx context.Context, sess *domain.Session) error
}

// EventStore appends immutable event records. Appends are commutative across
// sessions and never conflict.
type EventStore interface {
	Append(ctx context.Context, event domain.Event) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error)
}
