package storagesvc

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

// ErrObjectNotFound is returned when deleting an unknown key.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStorage keeps files in memory; used in tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailDeletes makes Delete fail, to exercise best-effort cleanups.
	FailDeletes bool
}

var _ core.FileStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading content")
	}
	s.mu.Lock()
	s.objects[key] = content
	s.mu.Unlock()
	return s.URL(key), nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeletes {
		return errors.New("delete failed")
	}
	if _, ok := s.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) URL(key string) string {
	return "memory://" + key
}

// Get returns the content stored under key.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.objects[key]
	return bytes.Clone(content), ok
}

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
