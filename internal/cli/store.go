package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/dgwatch/internal/config"
	"github.com/aretw0/dgwatch/pkg/adapters/file"
	"github.com/aretw0/dgwatch/pkg/adapters/redis"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// Store bundles a scene store with its optional locker and closer.
type Store struct {
	ports.SceneStore
	Locker ports.SceneLocker
	closer io.Closer
}

// Close releases the backend connection, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStore selects the backend from the scene location: redis:// URLs use Redis,
// anything else is a directory of scene files.
func OpenStore(cfg config.StoreConfig) (*Store, error) {
	if !cfg.IsRedis() {
		return &Store{SceneStore: file.New(cfg.Scene)}, nil
	}

	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, err
	}
	rs, err := redis.NewFromURL(cfg.Scene, redis.WithPrefix(cfg.Prefix), redis.WithTTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to open scene store: %w", err)
	}
	return &Store{SceneStore: rs, Locker: rs.Locker(), closer: rs}, nil
}
