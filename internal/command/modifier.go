package command

import (
	"errors"
	"fmt"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// step is one applied graph edit and its compensation.
type step struct {
	name string
	undo func() error
}

// Modifier performs graph edits immediately and records how to reverse each one,
// so a group of edits can be undone as a unit.
type Modifier struct {
	graph ports.Graph
	steps []step
}

// NewModifier creates an empty modifier over g.
func NewModifier(g ports.Graph) *Modifier {
	return &Modifier{graph: g}
}

// Len returns the number of recorded steps.
func (m *Modifier) Len() int {
	return len(m.steps)
}

// Steps returns the recorded step names in execution order.
func (m *Modifier) Steps() []string {
	names := make([]string, len(m.steps))
	for i, s := range m.steps {
		names[i] = s.name
	}
	return names
}

// CreateNode creates a node; undo deletes it.
func (m *Modifier) CreateNode(nodeType domain.NodeType, name string) (domain.NodeRef, error) {
	ref, err := m.graph.CreateNode(nodeType, name)
	if err != nil {
		return domain.NodeRef{}, err
	}
	m.record("create "+ref.Name, func() error { return m.graph.DeleteNode(ref) })
	return ref, nil
}

// AddAttribute adds a dynamic attribute; undo removes it.
func (m *Modifier) AddAttribute(node domain.NodeRef, attr domain.Attribute) error {
	if err := m.graph.AddAttribute(node, attr); err != nil {
		return err
	}
	m.record("add "+domain.PlugOf(node, attr.Name).String(), func() error {
		return m.graph.RemoveAttribute(node, attr.Name)
	})
	return nil
}

// Connect links two plugs; undo disconnects them.
func (m *Modifier) Connect(src, dst domain.Plug) error {
	if err := m.graph.Connect(src, dst); err != nil {
		return err
	}
	m.record(fmt.Sprintf("connect %s -> %s", src, dst), func() error {
		return m.graph.Disconnect(src, dst)
	})
	return nil
}

func (m *Modifier) record(name string, undo func() error) {
	m.steps = append(m.steps, step{name: name, undo: undo})
}

// UndoIt reverses recorded steps, newest first, and clears the log.
// Every step is attempted; failures are joined. Steps whose target is already gone
// (e.g. a node deleted by someone else) count as undone.
func (m *Modifier) UndoIt() error {
	var errs []error
	for i := len(m.steps) - 1; i >= 0; i-- {
		if err := m.steps[i].undo(); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, fmt.Errorf("undo %s: %w", m.steps[i].name, err))
		}
	}
	m.steps = nil
	return errors.Join(errs...)
}
