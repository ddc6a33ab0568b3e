package storage

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed FileStore for tests. It records every delete
// so cleanup behavior can be asserted.
type MemoryStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(folder, ext string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := fmt.Sprintf("/uploads/%s/%s%s", folder, uuid.New().String(), ext)
	s.files[ref] = data
	return ref, nil
}

func (s *MemoryStore) Delete(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[ref]; !ok {
		return fmt.Errorf("file not found: %s", ref)
	}
	delete(s.files, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

// Exists reports whether a reference is still stored.
func (s *MemoryStore) Exists(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.files[ref]
	return ok
}

// Deleted returns the references removed so far, in order.
func (s *MemoryStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}
