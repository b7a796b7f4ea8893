package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps records in process. It favors clarity over performance
// and backs unit tests and single-node deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ListBySession(_ context.Context, sessionID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if sid, ok := r.Meta["session"].(string); ok && sid == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every record in append order.
func (s *InMemoryStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records...)
}
