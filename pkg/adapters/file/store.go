// Package file stores scenes as YAML or JSON documents in a directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/dgwatch/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// Store implements ports.SceneStore using the local filesystem.
// Each scene is one file named <name>.<format> in BasePath.
type Store struct {
	BasePath string
	Format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects the encoding for saved scenes (default YAML).
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.Format = f
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".dgwatch/scenes".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".dgwatch", "scenes")
	}
	s := &Store{BasePath: basePath, Format: YAML}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(name string) string {
	return filepath.Join(s.BasePath, name+"."+string(s.Format))
}

func (s *Store) marshal(scene *domain.Scene) ([]byte, error) {
	if s.Format == JSON {
		return json.MarshalIndent(scene, "", "  ")
	}
	return yaml.Marshal(scene)
}

// Save persists the scene atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, name string, scene *domain.Scene) error {
	if name == "" {
		return fmt.Errorf("scene name cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure scene directory: %w", err)
	}

	data, err := s.marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(name)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing scene file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file to scene: %w", err)
	}
	return nil
}

// Load reads a scene. Files of either format are accepted regardless of Format.
func (s *Store) Load(ctx context.Context, name string) (*domain.Scene, error) {
	if name == "" {
		return nil, fmt.Errorf("scene name cannot be empty")
	}

	for _, f := range []Format{s.Format, YAML, JSON} {
		data, err := os.ReadFile(filepath.Join(s.BasePath, name+"."+string(f)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read scene file: %w", err)
		}
		return Decode(data, f)
	}
	return nil, domain.ErrSceneNotFound
}

// Decode parses a scene document.
func Decode(data []byte, f Format) (*domain.Scene, error) {
	var scene domain.Scene
	var err error
	if f == JSON {
		err = json.Unmarshal(data, &scene)
	} else {
		err = yaml.Unmarshal(data, &scene)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene: %w", err)
	}
	return &scene, nil
}

// Delete removes the scene file.
func (s *Store) Delete(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("scene name cannot be empty")
	}
	for _, f := range []Format{YAML, JSON} {
		err := os.Remove(filepath.Join(s.BasePath, name+"."+string(f)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete scene file: %w", err)
		}
	}
	return nil
}

// List returns stored scene names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
