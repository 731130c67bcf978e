package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// MockStore is a map-backed SceneStore used to check the contract suite itself.
type MockStore struct {
	data map[string]domain.Scene
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]domain.Scene),
	}
}

func (m *MockStore) Save(ctx context.Context, name string, scene *domain.Scene) error {
	m.data[name] = *scene
	return nil
}

func (m *MockStore) Load(ctx context.Context, name string) (*domain.Scene, error) {
	scene, ok := m.data[name]
	if !ok {
		return nil, domain.ErrSceneNotFound
	}
	return &scene, nil
}

func (m *MockStore) Delete(ctx context.Context, name string) error {
	delete(m.data, name)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	return names, nil
}

func TestSceneStore_Contract(t *testing.T) {
	ports.RunSceneStoreContract(t, NewMockStore())
}
