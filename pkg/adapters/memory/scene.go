package memory

import (
	"fmt"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// Snapshot captures nodes, attribute values, connections and selection.
func (g *Graph) Snapshot(name string) *domain.Scene {
	g.mu.Lock()
	defer g.mu.Unlock()

	scene := domain.NewScene(name)
	for _, ref := range g.sortedRefs("") {
		n := g.nodes[ref.Name]
		scene.Nodes = append(scene.Nodes, domain.NodeSpec{
			Name:       n.ref.Name,
			Type:       n.typ,
			Attributes: n.attributes(),
		})
	}
	for _, c := range g.conns {
		scene.Connections = append(scene.Connections, domain.Connection{
			Source:      domain.PlugPath{Node: c.src.Node.Name, Attr: c.src.Attr},
			Destination: domain.PlugPath{Node: c.dst.Node.Name, Attr: c.dst.Attr},
		})
	}
	scene.Selection = append(scene.Selection, g.selection...)
	return scene
}

// Restore adds the scene to the graph the way a host reloads a saved file: nodes are
// created first (running post-constructors), stored values are applied without
// notifications, then connections are replayed so connection callbacks fire again.
func (g *Graph) Restore(scene *domain.Scene) error {
	for _, spec := range scene.Nodes {
		ref, err := g.CreateNode(spec.Type, spec.Name)
		if err != nil {
			return fmt.Errorf("failed to restore node %s: %w", spec.Name, err)
		}
		for _, attr := range spec.Attributes {
			if err := g.restoreAttribute(ref, attr); err != nil {
				return fmt.Errorf("failed to restore %s.%s: %w", spec.Name, attr.Name, err)
			}
		}
	}

	for _, c := range scene.Connections {
		src, err := g.PlugFor(c.Source)
		if err != nil {
			return err
		}
		dst, err := g.PlugFor(c.Destination)
		if err != nil {
			return err
		}
		if err := g.Connect(src, dst); err != nil {
			return fmt.Errorf("failed to restore connection %s -> %s: %w", c.Source, c.Destination, err)
		}
	}

	if len(scene.Selection) > 0 {
		return g.Select(scene.Selection...)
	}
	return nil
}

func (g *Graph) restoreAttribute(ref domain.NodeRef, attr domain.Attribute) error {
	if !g.HasAttribute(ref, attr.Name) {
		// Children are re-linked from their own Parent field.
		attr.Children = nil
		return g.AddAttribute(ref, attr)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	_, existing, err := g.resolvePlug(domain.PlugOf(ref, attr.Name))
	if err != nil {
		return err
	}
	if existing.Kind != attr.Kind {
		return fmt.Errorf("%w: stored %s, node has %s", domain.ErrTypeMismatch, attr.Kind, existing.Kind)
	}
	existing.Value = normalize(attr).Value
	return nil
}

// PlugFor resolves a "node.attr" path against live nodes.
func (g *Graph) PlugFor(path domain.PlugPath) (domain.Plug, error) {
	ref, err := g.Lookup(path.Node)
	if err != nil {
		return domain.Plug{}, err
	}
	p := domain.PlugOf(ref, path.Attr)
	if !g.HasAttribute(p.Node, p.Attr) {
		return domain.Plug{}, fmt.Errorf("%w: plug %s", domain.ErrNotFound, path)
	}
	return p, nil
}
