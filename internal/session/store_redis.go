package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"greenlight/internal/domain"
	"greenlight/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "gl:session:"
	eventKeyPrefix   = "gl:events:"
)

// RedisStore persists sessions as JSON values in Redis. Saves run inside a
// WATCH transaction so the version check and the write are atomic.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := sessionKeyPrefix + sessionID

	body, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		sess := domain.NewSession(sessionID)
		created, merr := json.Marshal(sess)
		if merr != nil {
			return nil, fmt.Errorf("marshal new session: %w", merr)
		}
		// SetNX so a concurrent creator wins cleanly; re-read either way.
		if err := s.client.SetNX(ctx, key, created, 0).Err(); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		body, err = s.client.Get(ctx, key).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var out domain.Session
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &out, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *domain.Session) error {
	key := sessionKeyPrefix + sess.ID

	next := *sess
	next.Version = sess.Version + 1
	next.UpdatedAt = time.Now()

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		body, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load session for save: %w", err)
		}
		if err == nil {
			var current domain.Session
			if err := json.Unmarshal(body, &current); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
			if current.Version != sess.Version {
				return sentinel.ErrConflict
			}
		}

		state, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, state, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return err
	}
	sess.Version = next.Version
	sess.UpdatedAt = next.UpdatedAt
	return nil
}

// RedisEventStore appends events to a per-session Redis list.
type RedisEventStore struct {
	client *redis.Client
}

func NewRedisEvents(client *redis.Client) *RedisEventStore {
	return &RedisEventStore{client: client}
}

func (s *RedisEventStore) Append(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, eventKeyPrefix+event.SessionID, body).Err(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *RedisEventStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	items, err := s.client.LRange(ctx, eventKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]domain.Event, 0, len(items))
	for _, item := range items {
		var e domain.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
