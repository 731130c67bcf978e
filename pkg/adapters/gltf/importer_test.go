package gltf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/dgwatch/pkg/adapters/gltf"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0, 1, 2, 3]}],
  "nodes": [
    {"name": "pCube1", "translation": [1.5, 2, -3], "extras": {"dg_selected": 1, "dg_callback": true}},
    {"name": "pCube1", "extras": {"dg_visible": 0}},
    {"extras": {"dg_type": "dependency"}},
    {"name": "lamp", "extras": "not a map"}
  ]
}`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.gltf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func value(t *testing.T, spec *domain.NodeSpec, attr string) any {
	t.Helper()
	a, ok := spec.Attribute(attr)
	require.True(t, ok, "missing %s", attr)
	return a.Value
}

func TestImport(t *testing.T) {
	scene, err := gltf.Import(writeDoc(t, document))
	require.NoError(t, err)
	assert.Equal(t, "shot", scene.Name)
	require.Len(t, scene.Nodes, 4)

	cube, ok := scene.Node("pCube1")
	require.True(t, ok)
	assert.Equal(t, domain.NodeTypeTransform, cube.Type)
	assert.Equal(t, 1.5, value(t, cube, domain.AttrTranslateX))
	assert.Equal(t, 2.0, value(t, cube, domain.AttrTranslateY))
	assert.Equal(t, -3.0, value(t, cube, domain.AttrTranslateZ))
	_, hasCallback := cube.Attribute(gltf.CallbackAttr)
	assert.True(t, hasCallback)
	assert.Equal(t, []string{"pCube1"}, scene.Selection)

	dup, ok := scene.Node("pCube11")
	require.True(t, ok, "duplicate names get a suffix")
	assert.Equal(t, false, value(t, dup, domain.AttrVisibility))

	dep, ok := scene.Node("node2")
	require.True(t, ok)
	assert.Equal(t, domain.NodeTypeDependency, dep.Type)
	assert.Empty(t, dep.Attributes)

	lamp, ok := scene.Node("lamp")
	require.True(t, ok)
	assert.Equal(t, true, value(t, lamp, domain.AttrVisibility))
}

func TestImport_UnknownType(t *testing.T) {
	_, err := gltf.Import(writeDoc(t, `{
  "asset": {"version": "2.0"},
  "nodes": [{"name": "cam", "extras": {"dg_type": "camera"}}]
}`))
	assert.ErrorIs(t, err, domain.ErrUnknownNodeType)
}

func TestImport_MissingFile(t *testing.T) {
	_, err := gltf.Import(filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)
}
