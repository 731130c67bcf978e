package memory_test

import (
	"testing"

	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_CreateTransform(t *testing.T) {
	g := memory.NewGraph()

	ref, err := g.CreateNode(domain.NodeTypeTransform, "")
	require.NoError(t, err)
	assert.Equal(t, "transform1", ref.Name)
	assert.NotEmpty(t, ref.UID)

	parent, err := g.Parent(domain.PlugOf(ref, domain.AttrTranslateX))
	require.NoError(t, err)
	assert.Equal(t, domain.AttrTranslate, parent.Attr)

	z, err := g.Child(parent, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.AttrTranslateZ, z.Attr)

	_, err = g.Child(parent, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = g.CreateNode(domain.NodeTypeTransform, "transform1")
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	_, err = g.CreateNode("mystery", "")
	assert.ErrorIs(t, err, domain.ErrUnknownNodeType)
}

func TestGraph_StaleReference(t *testing.T) {
	g := memory.NewGraph()
	old, err := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	require.NoError(t, err)
	require.NoError(t, g.DeleteNode(old))

	// A new node under the same name must not revive the old reference.
	fresh, err := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	require.NoError(t, err)

	assert.False(t, g.Exists(old))
	assert.True(t, g.Exists(fresh))

	_, err = g.Double(domain.PlugOf(old, domain.AttrTranslateX))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = g.SetDouble(domain.PlugOf(old, domain.AttrTranslateX), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = g.NodeType(old)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGraph_ConnectionEvents(t *testing.T) {
	g := memory.NewGraph()
	src, _ := g.CreateNode(domain.NodeTypeTransform, "src")
	dst, _ := g.CreateNode(domain.NodeTypeDependency, "dst")
	require.NoError(t, g.AddAttribute(src, domain.MessageAttribute("out")))
	require.NoError(t, g.AddAttribute(dst, domain.MessageAttribute("in")))

	var srcEvents, dstEvents []domain.AttributeEvent
	_, err := g.AddAttributeChangedCallback(src, func(ev domain.AttributeEvent) { srcEvents = append(srcEvents, ev) })
	require.NoError(t, err)
	_, err = g.AddAttributeChangedCallback(dst, func(ev domain.AttributeEvent) { dstEvents = append(dstEvents, ev) })
	require.NoError(t, err)

	out, in := domain.PlugOf(src, "out"), domain.PlugOf(dst, "in")
	require.NoError(t, g.Connect(out, in))

	require.Len(t, dstEvents, 1)
	assert.True(t, dstEvents[0].IsIncomingConnection(domain.ConnectionMade))
	assert.Equal(t, "out", dstEvents[0].OtherPlug.Attr)
	require.Len(t, srcEvents, 1)
	assert.Equal(t, domain.Outgoing, srcEvents[0].Direction)

	peers, err := g.ConnectedTo(in, true, false)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, src, peers[0].Node)

	// A destination takes a single incoming connection.
	other, _ := g.CreateNode(domain.NodeTypeTransform, "other")
	require.NoError(t, g.AddAttribute(other, domain.MessageAttribute("out")))
	assert.ErrorIs(t, g.Connect(domain.PlugOf(other, "out"), in), domain.ErrInvalidNode)

	require.NoError(t, g.Disconnect(out, in))
	require.Len(t, dstEvents, 2)
	assert.True(t, dstEvents[1].IsIncomingConnection(domain.ConnectionBroken))

	assert.ErrorIs(t, g.Disconnect(out, in), domain.ErrNotFound)
}

func TestGraph_ConnectKindMismatch(t *testing.T) {
	g := memory.NewGraph()
	a, _ := g.CreateNode(domain.NodeTypeTransform, "a")
	require.NoError(t, g.AddAttribute(a, domain.MessageAttribute("msg")))

	err := g.Connect(domain.PlugOf(a, "msg"), domain.PlugOf(a, domain.AttrTranslateX))
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestGraph_ValuePropagation(t *testing.T) {
	g := memory.NewGraph()
	a, _ := g.CreateNode(domain.NodeTypeTransform, "a")
	b, _ := g.CreateNode(domain.NodeTypeTransform, "b")
	ax := domain.PlugOf(a, domain.AttrTranslateX)
	bx := domain.PlugOf(b, domain.AttrTranslateX)

	var sets []string
	_, err := g.AddAttributeChangedCallback(b, func(ev domain.AttributeEvent) {
		if ev.Is(domain.ValueSet, domain.Incoming) {
			sets = append(sets, ev.Plug.Attr)
		}
	})
	require.NoError(t, err)

	require.NoError(t, g.Connect(ax, bx))
	require.NoError(t, g.SetDouble(ax, 2.5))

	v, err := g.Double(bx)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
	assert.Equal(t, []string{domain.AttrTranslateX, domain.AttrTranslateX}, sets)

	// Driven plugs reject direct writes.
	assert.ErrorIs(t, g.SetDouble(bx, 1), domain.ErrInvalidNode)
	assert.ErrorIs(t, g.SetBool(bx, true), domain.ErrTypeMismatch)
}

func TestGraph_CallbackRemovedDuringDispatch(t *testing.T) {
	g := memory.NewGraph()
	n, _ := g.CreateNode(domain.NodeTypeTransform, "n")

	var second ports.CallbackID
	calls := 0
	_, err := g.AddAttributeChangedCallback(n, func(domain.AttributeEvent) {
		_ = g.RemoveCallback(second)
	})
	require.NoError(t, err)
	second, err = g.AddAttributeChangedCallback(n, func(domain.AttributeEvent) { calls++ })
	require.NoError(t, err)

	require.NoError(t, g.SetDouble(domain.PlugOf(n, domain.AttrTranslateX), 1))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, g.CallbackCount())
}

func TestGraph_DeleteNodeRunsPreRemovalAndBreaksConnections(t *testing.T) {
	g := memory.NewGraph()
	a, _ := g.CreateNode(domain.NodeTypeTransform, "a")
	b, _ := g.CreateNode(domain.NodeTypeTransform, "b")
	require.NoError(t, g.Connect(domain.PlugOf(a, domain.AttrTranslateX), domain.PlugOf(b, domain.AttrTranslateX)))

	var removed []string
	var broken int
	_, err := g.AddNodePreRemovalCallback(b, func(ref domain.NodeRef) { removed = append(removed, ref.Name) })
	require.NoError(t, err)
	_, err = g.AddAttributeChangedCallback(a, func(ev domain.AttributeEvent) {
		if ev.Change == domain.ConnectionBroken {
			broken++
		}
	})
	require.NoError(t, err)

	require.NoError(t, g.DeleteNode(b))
	assert.Equal(t, []string{"b"}, removed)
	assert.Equal(t, 1, broken)
	assert.Equal(t, 1, g.CallbackCount(), "callbacks bound to the deleted node are released")
	assert.Len(t, g.Nodes(""), 1)
}

func TestGraph_RefuseCallbacks(t *testing.T) {
	g := memory.NewGraph()
	n, _ := g.CreateNode(domain.NodeTypeTransform, "n")
	g.RefuseCallbacks(true)

	_, err := g.AddAttributeChangedCallback(n, func(domain.AttributeEvent) {})
	assert.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.Equal(t, 0, g.CallbackCount())
}

func TestGraph_PostConstructor(t *testing.T) {
	g := memory.NewGraph()
	var constructed []string
	require.NoError(t, g.RegisterNodeType("widget", ports.NodeTypeSpec{
		Attributes: []domain.Attribute{domain.MessageAttribute("in")},
		PostConstructor: func(ref domain.NodeRef) error {
			constructed = append(constructed, ref.Name)
			return nil
		},
	}))

	ref, err := g.CreateNode("widget", "")
	require.NoError(t, err)
	assert.Equal(t, "widget1", ref.Name)
	assert.Equal(t, []string{"widget1"}, constructed)
	assert.True(t, g.HasAttribute(ref, "in"))

	require.NoError(t, g.DeregisterNodeType("widget"))
	_, err = g.CreateNode("widget", "")
	assert.ErrorIs(t, err, domain.ErrUnknownNodeType)
	assert.Error(t, g.RegisterNodeType(domain.NodeTypeTransform, ports.NodeTypeSpec{}))
}

func TestGraph_RemoveAttribute(t *testing.T) {
	g := memory.NewGraph()
	n, _ := g.CreateNode(domain.NodeTypeTransform, "n")
	require.NoError(t, g.AddAttribute(n, domain.MessageAttribute("callback")))
	before, _ := g.Attributes(n)

	require.NoError(t, g.RemoveAttribute(n, "callback"))
	after, _ := g.Attributes(n)
	assert.Len(t, after, len(before)-1)
	assert.False(t, g.HasAttribute(n, "callback"))
	assert.ErrorIs(t, g.RemoveAttribute(n, "callback"), domain.ErrNotFound)
}

func TestGraph_SnapshotRestore(t *testing.T) {
	g := memory.NewGraph()
	a, _ := g.CreateNode(domain.NodeTypeTransform, "a")
	b, _ := g.CreateNode(domain.NodeTypeDependency, "b")
	require.NoError(t, g.AddAttribute(a, domain.MessageAttribute("out")))
	require.NoError(t, g.AddAttribute(b, domain.MessageAttribute("in")))
	require.NoError(t, g.SetDouble(domain.PlugOf(a, domain.AttrTranslateY), 3))
	require.NoError(t, g.Connect(domain.PlugOf(a, "out"), domain.PlugOf(b, "in")))
	require.NoError(t, g.Select("a"))

	scene := g.Snapshot("shot")
	require.Len(t, scene.Nodes, 2)
	require.Len(t, scene.Connections, 1)

	restored := memory.NewGraph()
	require.NoError(t, restored.RegisterNodeType("unused", ports.NodeTypeSpec{}))
	require.NoError(t, restored.Restore(scene))

	ra, err := restored.Lookup("a")
	require.NoError(t, err)
	y, err := restored.Double(domain.PlugOf(ra, domain.AttrTranslateY))
	require.NoError(t, err)
	assert.Equal(t, 3.0, y)
	assert.True(t, restored.HasAttribute(ra, "out"))

	rb, _ := restored.Lookup("b")
	peers, err := restored.ConnectedTo(domain.PlugOf(rb, "in"), true, false)
	require.NoError(t, err)
	assert.Len(t, peers, 1)
	assert.Equal(t, []domain.NodeRef{ra}, restored.Selection())

	again := restored.Snapshot("shot")
	assert.Equal(t, scene.Connections, again.Connections)
	assert.Equal(t, len(scene.Nodes), len(again.Nodes))
}
