package cli_test

import (
	"context"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeScene() *domain.Scene {
	scene := domain.NewScene("shot")
	scene.Nodes = append(scene.Nodes, domain.NodeSpec{
		Name:       "pCube1",
		Type:       domain.NodeTypeTransform,
		Attributes: domain.TransformAttributes(),
	})
	scene.Selection = []string{"pCube1"}
	return scene
}

func TestSession_RoundTripRearmsWatcher(t *testing.T) {
	ctx := context.Background()
	opts := cli.Options{ConfigPath: "", Scene: t.TempDir(), Name: "shot"}
	t.Chdir(t.TempDir())

	s, err := cli.Create(ctx, opts, cubeScene())
	require.NoError(t, err)
	_, err = s.Plugin.Apply(dgwatch.Args{Selection: s.Graph.Selection()})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))
	s.Close(ctx)

	reopened, err := cli.Open(ctx, opts)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	// Watches come back from the node constructor and the replayed connection.
	assert.Equal(t, 3, reopened.Plugin.Registry().Len())

	cube, err := reopened.Lookup("pCube1")
	require.NoError(t, err)
	require.NoError(t, reopened.Graph.SetDouble(domain.PlugOf(cube, domain.AttrTranslateX), math.Pi/2))
	y, _ := reopened.Graph.Double(domain.PlugOf(cube, domain.AttrTranslateY))
	assert.InDelta(t, 1.0, y, 1e-12)

	_, err = reopened.Plugin.Apply(dgwatch.Args{Selection: []domain.NodeRef{cube}})
	assert.ErrorIs(t, err, domain.ErrAlreadyInstalled)
}

func TestSession_MissingScene(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := cli.Open(context.Background(), cli.Options{Scene: t.TempDir(), Name: "nope"})
	assert.ErrorIs(t, err, domain.ErrSceneNotFound)
}

func TestSession_BadTeardown(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := cli.Create(context.Background(), cli.Options{Scene: t.TempDir(), Teardown: "some"}, cubeScene())
	assert.Error(t, err)
}

func TestSession_RedisLocksScene(t *testing.T) {
	t.Chdir(t.TempDir())
	mr := miniredis.RunT(t)
	ctx := context.Background()
	opts := cli.Options{Scene: "redis://" + mr.Addr() + "/0", Name: "shot"}

	s, err := cli.Create(ctx, opts, cubeScene())
	require.NoError(t, err)
	assert.True(t, mr.Exists("dgwatch:scene:lock:shot"))
	require.NoError(t, s.Save(ctx))
	s.Close(ctx)
	assert.False(t, mr.Exists("dgwatch:scene:lock:shot"))

	reopened, err := cli.Open(ctx, opts)
	require.NoError(t, err)
	defer reopened.Close(ctx)
	_, err = reopened.Lookup("pCube1")
	assert.NoError(t, err)
}
