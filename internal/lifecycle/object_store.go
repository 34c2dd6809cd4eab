package lifecycle

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ObjectStore holds transient objects for the lifetime of one owner.
// Objects implementing io.Closer are closed when the store is cleared.
type ObjectStore struct {
	id uuid.UUID

	mu      sync.Mutex
	objects map[string]any
	cleared bool
}

// NewObjectStore creates an empty store with a fresh identity.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		id:      uuid.New(),
		objects: make(map[string]any),
	}
}

// ID identifies the store's scope.
func (s *ObjectStore) ID() uuid.UUID { return s.id }

// GetOrCreate returns the object under key, creating it with create on first use.
// After Clear it always calls create and does not retain the result.
func (s *ObjectStore) GetOrCreate(key string, create func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.objects[key]; ok {
		return v
	}
	v := create()
	if !s.cleared {
		s.objects[key] = v
	}
	return v
}

// Len returns the number of retained objects.
func (s *ObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Clear drops every object and closes those that are io.Closers.
func (s *ObjectStore) Clear() {
	s.mu.Lock()
	objects := s.objects
	s.objects = make(map[string]any)
	s.cleared = true
	s.mu.Unlock()

	for key, v := range objects {
		c, ok := v.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close stored object", "store_id", s.id.String(), "key", key, "error", err)
		}
	}
}
