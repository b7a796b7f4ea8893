package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists audit records in PostgreSQL via database/sql
// (lib/pq driver). Records are append-only; there is no update path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table when absent. Kept idempotent so the
// server can run it at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id        BIGSERIAL PRIMARY KEY,
			actor     TEXT NOT NULL,
			action    TEXT NOT NULL,
			resource  TEXT NOT NULL,
			meta      JSONB,
			result    TEXT NOT NULL,
			at        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_records_session_idx
			ON audit_records ((meta->>'session'));
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	meta, err := json.Marshal(record.Meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (actor, action, resource, meta, result, at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(record.Actor), string(record.Action), record.Resource,
		meta, string(record.Result), record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor, action, resource, meta, result, at
		FROM audit_records
		WHERE meta->>'session' = $1
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			meta []byte
		)
		if err := rows.Scan(&r.Actor, &r.Action, &r.Resource, &meta, &r.Result, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
