package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"greenlight/internal/domain"
	"greenlight/pkg/platform/sentinel"
)

// PostgresStore persists sessions and events in PostgreSQL (lib/pq driver).
// The session body is stored as a JSONB document alongside an explicit
// version column used for the optimistic save check.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates tables when absent; idempotent for startup use.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			version    INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS events (
			id         BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			type       TEXT NOT NULL,
			payload    JSONB,
			at         TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_session_idx ON events (session_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure session schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess := domain.NewSession(sessionID)
	state, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal new session: %w", err)
	}

	// Insert-if-absent, then read whichever row won.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, version)
		VALUES ($1, $2, 0)
		ON CONFLICT (id) DO NOTHING`,
		sessionID, state,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	var (
		body    []byte
		version int
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT state, version FROM sessions WHERE id = $1`, sessionID,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var out domain.Session
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	out.Version = version
	return &out, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *domain.Session) error {
	next := *sess
	next.Version = sess.Version + 1
	next.UpdatedAt = time.Now()

	state, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET state = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5`,
		state, next.Version, next.UpdatedAt, sess.ID, sess.Version,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	sess.Version = next.Version
	sess.UpdatedAt = next.UpdatedAt
	return nil
}

// PostgresEventStore appends events to the events table.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEvents(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Append(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, type, payload, at)
		VALUES ($1, $2, $3, $4)`,
		event.SessionID, event.Type, payload, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, type, payload, at
		FROM events
		WHERE session_id = $1
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			payload []byte
		)
		if err := rows.Scan(&e.SessionID, &e.Type, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
