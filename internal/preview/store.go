package preview

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store holds preview bytes by id.
type Store interface {
	// Put stores data and returns where a consumer can find it.
	Put(id string, data []byte) (string, error)
	Get(id string) ([]byte, error)
	Delete(id string) error
}

// MemoryStore keeps previews in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Put(id string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
	return "mem:" + id, nil
}

func (s *MemoryStore) Get(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReleased, id)
	}
	return d, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Len returns the number of stored previews.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// DirStore writes previews as files under a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *DirStore) Put(id string, data []byte) (string, error) {
	p := s.path(id)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func (s *DirStore) Get(id string) ([]byte, error) {
	d, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrReleased, id)
	}
	return d, err
}

func (s *DirStore) Delete(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DirStore)(nil)
)
