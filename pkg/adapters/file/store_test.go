package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/dgwatch/pkg/adapters/file"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSceneStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_JSONContract(t *testing.T) {
	ports.RunSceneStoreContract(t, file.New(t.TempDir(), file.WithFormat(file.JSON)))
}

func TestFileStore_ReadsHandWrittenYAML(t *testing.T) {
	dir := t.TempDir()
	doc := `name: demo
nodes:
  - name: pCube1
    type: transform
    attributes:
      - name: translateX
        kind: double
        parent: translate
        value: 2
selection: [pCube1]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.yaml"), []byte(doc), 0644))

	// A JSON store still finds YAML scenes.
	store := file.New(dir, file.WithFormat(file.JSON))
	scene, err := store.Load(context.Background(), "demo")
	require.NoError(t, err)

	cube, ok := scene.Node("pCube1")
	require.True(t, ok)
	attr, ok := cube.Attribute(domain.AttrTranslateX)
	require.True(t, ok)
	x, ok := domain.AsFloat(attr.Value)
	require.True(t, ok)
	assert.Equal(t, 2.0, x)

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)
}

func TestFileStore_EmptyName(t *testing.T) {
	store := file.New(t.TempDir())
	assert.Error(t, store.Save(context.Background(), "", domain.NewScene("")))
	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
}
