package ports

import (
	"context"
	"time"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// SceneStore defines the interface for persisting scene snapshots.
// Observer subscriptions are never stored; only nodes, values and connections are.
type SceneStore interface {
	// Save persists the scene under the given name.
	Save(ctx context.Context, name string, scene *domain.Scene) error

	// Load retrieves the named scene.
	// Returns domain.ErrSceneNotFound if the scene does not exist.
	Load(ctx context.Context, name string) (*domain.Scene, error)

	// Delete removes the named scene.
	Delete(ctx context.Context, name string) error

	// List returns the names of stored scenes.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock obtained from a SceneLocker.
type UnlockFunc func(ctx context.Context) error

// SceneLocker serializes load-modify-save cycles on a shared scene.
type SceneLocker interface {
	// Lock blocks until the key is held or ctx is done. The lock expires after ttl.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
