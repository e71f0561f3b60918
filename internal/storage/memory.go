package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Compile-time check that MemoryStore implements ObjectStore.
var _ ObjectStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory ObjectStore for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates a new in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// Put writes the object under the given bucket and key.
func (s *MemoryStore) Put(_ context.Context, bucket, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, key)] = data
	return nil
}

// Get reads the object back.
func (s *MemoryStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PublicURL returns a stable fake URL for the object.
func (s *MemoryStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.local/%s/%s", bucket, key)
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectKey(bucket, key))
	return nil
}

// Len returns the number of stored objects. Used in tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
