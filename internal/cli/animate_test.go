package cli_test

import (
	"math"
	"testing"

	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimate_DrivesReactor(t *testing.T) {
	g := memory.NewGraph()
	plugin := dgwatch.New(g)
	require.NoError(t, plugin.Load())
	cube, _ := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	_, err := plugin.Apply(dgwatch.Args{Selection: []domain.NodeRef{cube}})
	require.NoError(t, err)

	linear, err := cli.Easing("linear")
	require.NoError(t, err)

	var frames []cli.Frame
	require.NoError(t, cli.Animate(g, cube, 0, 2, 4, linear, func(f cli.Frame) { frames = append(frames, f) }))
	require.Len(t, frames, 4)

	last := frames[3]
	assert.Equal(t, 4, last.Index)
	assert.InDelta(t, 2.0, last.X, 1e-6)
	assert.InDelta(t, math.Sin(last.X), last.Y, 1e-6)
	assert.InDelta(t, 0.5, frames[0].X, 1e-6)
}

func TestAnimate_Validation(t *testing.T) {
	g := memory.NewGraph()
	cube, _ := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	linear, _ := cli.Easing("linear")

	assert.Error(t, cli.Animate(g, cube, 0, 1, 0, linear, nil))

	_, err := cli.Easing("wobbly")
	assert.ErrorContains(t, err, "out-bounce")
}
