package command_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/aretw0/dgwatch/internal/command"
	"github.com/aretw0/dgwatch/internal/runtime"
	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scene struct {
	graph    *memory.Graph
	registry *registry.Registry
	cube     domain.NodeRef
	sphere   domain.NodeRef
}

func newScene(t *testing.T) *scene {
	t.Helper()
	g := memory.NewGraph()
	reg := registry.New(g)
	nt := runtime.NewCallbackNodeType(g, reg)
	require.NoError(t, g.RegisterNodeType(runtime.NodeTypeCallback, nt.Spec()))

	cube, err := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	require.NoError(t, err)
	sphere, err := g.CreateNode(domain.NodeTypeTransform, "pSphere1")
	require.NoError(t, err)
	return &scene{graph: g, registry: reg, cube: cube, sphere: sphere}
}

func TestApply_InstallsAndReacts(t *testing.T) {
	s := newScene(t)
	cmd := command.NewApply(s.graph)

	res, err := cmd.Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	require.NoError(t, err)
	assert.Equal(t, s.cube, res.Target)
	assert.Equal(t, "callbackNodeExample1", res.Node.Name)
	assert.Len(t, res.Steps, 3)
	assert.True(t, cmd.IsUndoable())
	assert.True(t, s.graph.HasAttribute(s.cube, runtime.AttrCallback))
	assert.True(t, s.registry.Watching(s.cube, domain.ValueWatch))

	require.NoError(t, s.graph.SetDouble(domain.PlugOf(s.cube, domain.AttrTranslateX), math.Pi/2))
	y, _ := s.graph.Double(domain.PlugOf(s.cube, domain.AttrTranslateY))
	assert.InDelta(t, 1.0, y, 1e-12)
}

func TestApply_InvalidSelectionMutatesNothing(t *testing.T) {
	s := newScene(t)
	before := len(s.graph.Nodes(""))

	for _, sel := range [][]domain.NodeRef{nil, {s.cube, s.sphere}} {
		cmd := command.NewApply(s.graph)
		_, err := cmd.Do(command.Args{Selection: sel})
		assert.ErrorIs(t, err, domain.ErrInvalidSelection)
		assert.Equal(t, 0, cmd.Pending())
		assert.Len(t, s.graph.Nodes(""), before)
	}
	assert.False(t, s.graph.HasAttribute(s.cube, runtime.AttrCallback))
}

func TestApply_SecondInstallIsRejected(t *testing.T) {
	s := newScene(t)
	_, err := command.NewApply(s.graph).Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	require.NoError(t, err)
	nodes := len(s.graph.Nodes(""))

	second := command.NewApply(s.graph)
	_, err = second.Do(command.Args{Selection: []domain.NodeRef{s.sphere}})
	assert.ErrorIs(t, err, domain.ErrAlreadyInstalled)
	assert.Equal(t, 0, second.Pending())
	assert.Len(t, s.graph.Nodes(""), nodes)
	assert.False(t, s.graph.HasAttribute(s.sphere, runtime.AttrCallback))
}

func TestApply_UndoRestoresPreInstallGraph(t *testing.T) {
	s := newScene(t)
	before := s.graph.Snapshot("scene")

	cmd := command.NewApply(s.graph)
	_, err := cmd.Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	require.NoError(t, err)
	require.NotEqual(t, before, s.graph.Snapshot("scene"))

	require.NoError(t, cmd.Undo())
	assert.Equal(t, before, s.graph.Snapshot("scene"))
	assert.Equal(t, 0, s.registry.Len())
	assert.Equal(t, 0, cmd.Pending())
	_, ok := cmd.Result()
	assert.False(t, ok)

	// Redo installs again from the same arguments.
	res, err := cmd.Redo()
	require.NoError(t, err)
	assert.True(t, s.graph.Exists(res.Node))
	assert.Equal(t, 3, s.registry.Len())
}

func TestApply_KeepsExistingCallbackAttribute(t *testing.T) {
	s := newScene(t)
	require.NoError(t, s.graph.AddAttribute(s.cube, domain.MessageAttribute(runtime.AttrCallback)))
	before := s.graph.Snapshot("scene")

	cmd := command.NewApply(s.graph)
	res, err := cmd.Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	require.NoError(t, err)
	assert.Len(t, res.Steps, 2)

	require.NoError(t, cmd.Undo())
	assert.Equal(t, before, s.graph.Snapshot("scene"))
}

func TestApply_RollsBackOnFailure(t *testing.T) {
	s := newScene(t)
	// A double attribute under the wire name cannot feed a message plug.
	require.NoError(t, s.graph.AddAttribute(s.cube, domain.DoubleAttribute(runtime.AttrCallback, 0)))
	nodes := len(s.graph.Nodes(""))

	cmd := command.NewApply(s.graph)
	_, err := cmd.Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	assert.Len(t, s.graph.Nodes(""), nodes)
	assert.Empty(t, s.graph.Nodes(runtime.NodeTypeCallback))
	assert.Equal(t, 0, s.registry.Len())
	assert.Equal(t, 0, cmd.Pending())
}

func TestApply_StaleSelection(t *testing.T) {
	s := newScene(t)
	require.NoError(t, s.graph.DeleteNode(s.cube))

	_, err := command.NewApply(s.graph).Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)
	assert.Empty(t, s.graph.Nodes(runtime.NodeTypeCallback))
}

func TestApply_SubscriptionFailureAborts(t *testing.T) {
	s := newScene(t)
	s.graph.RefuseCallbacks(true)

	_, err := command.NewApply(s.graph).Do(command.Args{Selection: []domain.NodeRef{s.cube}})
	assert.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.Empty(t, s.graph.Nodes(runtime.NodeTypeCallback))
	assert.False(t, s.graph.HasAttribute(s.cube, runtime.AttrCallback))
}

func TestApply_HelpIsNotUndoable(t *testing.T) {
	s := newScene(t)
	var out bytes.Buffer
	cmd := command.NewApply(s.graph, command.WithOutput(&out))

	res, err := cmd.Do(command.Args{Help: true, Selection: []domain.NodeRef{s.cube}})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.False(t, cmd.IsUndoable())
	assert.Contains(t, out.String(), "Usage: callbackNodeExample")
	assert.Empty(t, s.graph.Nodes(runtime.NodeTypeCallback))
}
