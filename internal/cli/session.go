package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/internal/config"
	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/observability"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// LockTTL bounds how long a crashed process can hold a shared scene.
const LockTTL = 30 * time.Second

// Options are the persistent command-line settings.
type Options struct {
	ConfigPath string
	Scene      string
	Name       string
	Debug      bool
	Teardown   string
	// Hooks are combined with the session's metrics and debug hooks.
	Hooks domain.LifecycleHooks
}

// Session is one loaded scene: a memory graph with the plugin loaded, backed by a store.
type Session struct {
	Config  *config.Config
	Name    string
	Graph   *memory.Graph
	Plugin  *dgwatch.Plugin
	Metrics *observability.Metrics
	Logger  *slog.Logger

	store  *Store
	unlock ports.UnlockFunc
}

// Open loads the named scene. It fails with domain.ErrSceneNotFound if it was never saved.
func Open(ctx context.Context, opts Options) (*Session, error) {
	return open(ctx, opts, func(s *Session) (*domain.Scene, error) {
		return s.store.Load(ctx, s.Name)
	})
}

// Create starts a session from scene, replacing whatever is stored under the name.
func Create(ctx context.Context, opts Options, scene *domain.Scene) (*Session, error) {
	return open(ctx, opts, func(*Session) (*domain.Scene, error) {
		return scene, nil
	})
}

func open(ctx context.Context, opts Options, source func(*Session) (*domain.Scene, error)) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Scene != "" {
		cfg.Store.Scene = opts.Scene
	}
	if opts.Name != "" {
		cfg.Store.Name = opts.Name
	}
	if opts.Teardown != "" {
		cfg.Watcher.Teardown = opts.Teardown
	}

	logger, err := createLogger(cfg.Log, opts.Debug)
	if err != nil {
		return nil, err
	}
	teardown, err := dgwatch.ParseTeardownPolicy(cfg.Watcher.Teardown)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:  cfg,
		Name:    cfg.Store.Name,
		Graph:   memory.NewGraph(memory.WithLogger(logger)),
		Metrics: observability.NewMetrics(),
		Logger:  logger.With("scene", cfg.Store.Name),
		store:   store,
	}

	if store.Locker != nil {
		unlock, err := store.Locker.Lock(ctx, s.Name, LockTTL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to lock scene %s: %w", s.Name, err)
		}
		s.unlock = unlock
	}

	hooks := []domain.LifecycleHooks{s.Metrics.Hooks(), opts.Hooks}
	if opts.Debug {
		hooks = append(hooks, observability.LogHooks(s.Logger))
	}
	s.Plugin = dgwatch.New(s.Graph,
		dgwatch.WithLogger(s.Logger),
		dgwatch.WithLifecycleHooks(observability.Combine(hooks...)),
		dgwatch.WithTeardown(teardown),
	)
	if err := s.Plugin.Load(); err != nil {
		s.Close(ctx)
		return nil, err
	}

	scene, err := source(s)
	if err != nil {
		s.Close(ctx)
		if errors.Is(err, domain.ErrSceneNotFound) {
			return nil, fmt.Errorf("%w: %q (create it with `dgwatch new` or `dgwatch import`)", err, s.Name)
		}
		return nil, err
	}
	if err := s.Graph.Restore(scene); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to restore scene %s: %w", s.Name, err)
	}
	s.Logger.Debug("scene loaded", "nodes", len(scene.Nodes), "subscriptions", s.Plugin.Registry().Len())
	return s, nil
}

// Snapshot captures the current graph.
func (s *Session) Snapshot() *domain.Scene {
	return s.Graph.Snapshot(s.Name)
}

// Save writes the current graph back to the store.
func (s *Session) Save(ctx context.Context) error {
	if err := s.store.Save(ctx, s.Name, s.Snapshot()); err != nil {
		return fmt.Errorf("failed to save scene %s: %w", s.Name, err)
	}
	return nil
}

// Persist adapts Save for callers that hold a scene already.
func (s *Session) Persist(ctx context.Context, scene *domain.Scene) error {
	return s.store.Save(ctx, s.Name, scene)
}

// Lookup resolves a node name in the session graph.
func (s *Session) Lookup(name string) (domain.NodeRef, error) {
	return s.Graph.Lookup(name)
}

// Close unloads the plugin, releases the scene lock and the store.
func (s *Session) Close(ctx context.Context) {
	if s.Plugin != nil && s.Plugin.Loaded() {
		if err := s.Plugin.Unload(); err != nil {
			s.Logger.Warn("unload failed", "error", err)
		}
	}
	if s.unlock != nil {
		if err := s.unlock(ctx); err != nil {
			s.Logger.Warn("failed to release scene lock", "error", err)
		}
		s.unlock = nil
	}
	if err := s.store.Close(); err != nil {
		s.Logger.Warn("failed to close store", "error", err)
	}
}
