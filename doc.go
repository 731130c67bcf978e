/*
Package dgwatch is a reactive attribute observer for dependency graphs.

A callback node watches its "transform" input. When a transform node is connected to it,
the node subscribes to value changes on that transform, and every time translateX is set
it writes translateY = sin(x) and translateZ = cos(z + x). Disconnecting tears the
subscriptions down again.

# Concept

The host graph (nodes, attributes, connections and change notifications) is a port, see
pkg/ports.Graph. Subscriptions are owned by an explicit registry (pkg/registry), so every
host callback has exactly one place where it is released. pkg/adapters/memory provides a
synchronous in-memory host used by the CLI, the HTTP server and the tests.

# Usage

	g := memory.NewGraph()
	p := dgwatch.New(g, dgwatch.WithLogger(logger))
	if err := p.Load(); err != nil {
		log.Fatal(err)
	}
	defer p.Unload()

	cube, _ := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	if _, err := p.Apply(dgwatch.Args{Selection: []domain.NodeRef{cube}}); err != nil {
		log.Fatal(err)
	}

	_ = g.SetDouble(domain.PlugOf(cube, domain.AttrTranslateX), math.Pi/2)
	// translateY is now 1.

Only one callback node may exist per graph; a second Apply fails with
domain.ErrAlreadyInstalled. Undo reverses an install as a unit.
*/
package dgwatch
