// Package artifact stores generated documents (sanction letters, KFS
// records) as retrievable blobs served under /files/.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"greenlight/pkg/platform/sentinel"
)

// ServedPrefix is the public path prefix artifact references carry.
const ServedPrefix = "/files/"

// Store persists named artifacts. Put returns the served reference
// ("/files/<name>") used in replies and CRM notifications.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
}

// FSStore writes artifacts to a flat directory on disk.
type FSStore struct {
	dir string
}

func NewFS(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, name string, data []byte) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, clean), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", clean, err)
	}
	return ServedPrefix + clean, nil
}

func (s *FSStore) Get(_ context.Context, name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, clean))
	if os.IsNotExist(err) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", clean, err)
	}
	return data, nil
}

// cleanName rejects path traversal; artifact names are flat.
func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(name, ServedPrefix)
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return name, nil
}

// MemStore keeps artifacts in process for tests and ephemeral deployments.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMem() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(_ context.Context, name string, data []byte) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[clean] = append([]byte{}, data...)
	return ServedPrefix + clean, nil
}

func (s *MemStore) Get(_ context.Context, name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[clean]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte{}, data...), nil
}
