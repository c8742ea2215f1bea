package publish

import (
	"context"
	"sync"
)

// LocalStore is an in-process content store for development and tests.
// It honors the same idempotency contract as the S3 store.
type LocalStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	commits map[string]string // idempotency key -> sha
}

// NewLocalStore creates an empty local content store
func NewLocalStore() *LocalStore {
	return &LocalStore{
		objects: make(map[string][]byte),
		commits: make(map[string]string),
	}
}

// Commit stores the document in memory, collapsing duplicate keys
func (s *LocalStore) Commit(ctx context.Context, key string, body []byte, idempotencyKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sha, ok := s.commits[idempotencyKey]; ok {
		return sha, nil
	}

	s.objects[key] = append([]byte(nil), body...)
	s.commits[idempotencyKey] = idempotencyKey
	return idempotencyKey, nil
}

// Object returns a stored document, for inspection in tests
func (s *LocalStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	return body, ok
}

// CommitCount reports how many distinct commits were written
func (s *LocalStore) CommitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits)
}
