package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryBlobStore keeps uploads in process memory for development and tests.
type MemoryBlobStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{
		baseURL: baseURL,
		objects: make(map[string][]byte),
	}
}

func (s *MemoryBlobStore) UploadBlob(ctx context.Context, data io.Reader, contentType, pathPrefix string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %v", err)
	}
	name := ObjectName(pathPrefix, contentType, time.Now())

	s.mu.Lock()
	s.objects[name] = b
	s.mu.Unlock()

	return s.baseURL + "/" + name, nil
}

// Object returns a stored upload by object name.
func (s *MemoryBlobStore) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[name]
	return b, ok
}

func (s *MemoryBlobStore) Close() error {
	return nil
}
