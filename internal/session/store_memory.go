package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"greenlight/internal/domain"
	"greenlight/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process. Sessions are deep-copied on the
// way in and out so callers never share memory with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return copySession(sess)
	}
	sess := domain.NewSession(sessionID)
	s.sessions[sessionID] = sess
	return copySession(sess)
}

func (s *InMemoryStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.ID]
	if ok && current.Version != sess.Version {
		return sentinel.ErrConflict
	}
	stored, err := copySession(sess)
	if err != nil {
		return err
	}
	stored.Version++
	stored.UpdatedAt = time.Now()
	s.sessions[sess.ID] = stored
	sess.Version = stored.Version
	sess.UpdatedAt = stored.UpdatedAt
	return nil
}

// copySession round-trips through JSON. Sessions are small and this keeps the
// copy honest as fields are added.
func copySession(sess *domain.Session) (*domain.Session, error) {
	b, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var out domain.Session
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InMemoryEventStore appends events per session in arrival order.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]domain.Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]domain.Event)}
}

func (s *InMemoryEventStore) Append(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

func (s *InMemoryEventStore) ListBySession(_ context.Context, sessionID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event{}, s.events[sessionID]...), nil
}
