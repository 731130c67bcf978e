package domain

// Scene is a serializable snapshot of a graph.
// Observer subscriptions are not part of it: they are rebuilt by node post-constructors
// and connection events when the scene is restored.
type Scene struct {
	Name        string       `json:"name" yaml:"name"`
	Nodes       []NodeSpec   `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Selection   []string     `json:"selection,omitempty" yaml:"selection,omitempty"`
}

// NodeSpec is the persisted form of a node.
type NodeSpec struct {
	Name       string      `json:"name" yaml:"name"`
	Type       NodeType    `json:"type" yaml:"type"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Connection is a persisted source → destination plug link.
type Connection struct {
	Source      PlugPath `json:"source" yaml:"source"`
	Destination PlugPath `json:"destination" yaml:"destination"`
}

// NewScene returns an empty scene.
func NewScene(name string) *Scene {
	return &Scene{
		Name:  name,
		Nodes: []NodeSpec{},
	}
}

// Node returns the spec for the named node, if any.
func (s *Scene) Node(name string) (*NodeSpec, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// Attribute returns the named attribute of the node spec, if any.
func (n *NodeSpec) Attribute(name string) (*Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}
