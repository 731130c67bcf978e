package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// Store implements ports.SceneStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the scene in memory.
func (s *Store) Save(ctx context.Context, name string, scene *domain.Scene) error {
	// Serialize to isolate the stored copy from later mutation by the caller.
	data, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = data
	return nil
}

// Load retrieves the scene from memory.
func (s *Store) Load(ctx context.Context, name string) (*domain.Scene, error) {
	s.mu.RLock()
	data, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSceneNotFound
	}

	var scene domain.Scene
	if err := json.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene: %w", err)
	}
	return &scene, nil
}

// Delete removes the scene.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns stored scene names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	return names, nil
}
