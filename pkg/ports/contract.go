package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSceneStoreContract runs a suite of tests to verify that a SceneStore implementation
// adheres to the defined interface contract.
func RunSceneStoreContract(t *testing.T, store SceneStore) {
	ctx := context.Background()
	name := "contract-test-scene-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		scene := contractScene(name)

		err := store.Save(ctx, name, scene)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, scene.Name, loaded.Name)
		require.Len(t, loaded.Nodes, 1)
		assert.Equal(t, domain.NodeTypeTransform, loaded.Nodes[0].Type)
		assert.Equal(t, []string{"pCube1"}, loaded.Selection)
		require.Len(t, loaded.Connections, 1)
		assert.Equal(t, "translateX", loaded.Connections[0].Destination.Attr)

		// Serializers may change the numeric type; only the value must survive.
		attr, ok := loaded.Nodes[0].Attribute(domain.AttrTranslateX)
		require.True(t, ok)
		x, ok := domain.AsFloat(attr.Value)
		require.True(t, ok, "translateX should decode as a number, got %T", attr.Value)
		assert.InDelta(t, 1.5, x, 1e-9)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSceneNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, name, contractScene(name))
		require.NoError(t, err)

		err = store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSceneNotFound, "Load after Delete should return ErrSceneNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, contractScene(id1))
		_ = store.Save(ctx, id2, contractScene(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}

func contractScene(name string) *domain.Scene {
	scene := domain.NewScene(name)
	attrs := domain.TransformAttributes()
	attrs[1].Value = 1.5
	scene.Nodes = append(scene.Nodes, domain.NodeSpec{
		Name:       "pCube1",
		Type:       domain.NodeTypeTransform,
		Attributes: attrs,
	})
	scene.Connections = []domain.Connection{{
		Source:      domain.PlugPath{Node: "pCube1", Attr: "translateY"},
		Destination: domain.PlugPath{Node: "pCube1", Attr: "translateX"},
	}}
	scene.Selection = []string{"pCube1"}
	return scene
}
