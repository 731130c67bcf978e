package ports

import "github.com/aretw0/dgwatch/pkg/domain"

// CallbackID identifies a host-side callback registration.
type CallbackID uint64

// AttributeCallback receives attribute notifications for a node.
// It is invoked synchronously, in mutation order, on the evaluation thread.
type AttributeCallback func(ev domain.AttributeEvent)

// NodeCallback receives node lifecycle notifications.
type NodeCallback func(node domain.NodeRef)

// Messages is the host's change-notification API.
type Messages interface {
	// AddAttributeChangedCallback subscribes fn to every attribute event on node.
	AddAttributeChangedCallback(node domain.NodeRef, fn AttributeCallback) (CallbackID, error)

	// AddNodePreRemovalCallback subscribes fn to run just before node is deleted.
	AddNodePreRemovalCallback(node domain.NodeRef, fn NodeCallback) (CallbackID, error)

	// RemoveCallback releases a registration. Unknown ids are ignored.
	RemoveCallback(id CallbackID) error
}

// NodeTypeSpec describes a node type registered by a plugin.
type NodeTypeSpec struct {
	// Attributes are added to every node of this type on creation.
	Attributes []domain.Attribute

	// PostConstructor runs once the node and its attributes exist.
	// A non-nil error aborts creation and the node is removed again.
	PostConstructor func(node domain.NodeRef) error
}

// Graph is the host dependency graph as seen by plugins.
type Graph interface {
	Messages

	RegisterNodeType(nodeType domain.NodeType, spec NodeTypeSpec) error
	DeregisterNodeType(nodeType domain.NodeType) error

	// CreateNode creates a node of a built-in or registered type. An empty name is
	// replaced by a generated unique one.
	CreateNode(nodeType domain.NodeType, name string) (domain.NodeRef, error)
	DeleteNode(node domain.NodeRef) error
	Lookup(name string) (domain.NodeRef, error)
	Exists(node domain.NodeRef) bool
	NodeType(node domain.NodeRef) (domain.NodeType, error)

	// Nodes lists live nodes of the given type, or every node when nodeType is empty.
	Nodes(nodeType domain.NodeType) []domain.NodeRef

	AddAttribute(node domain.NodeRef, attr domain.Attribute) error
	RemoveAttribute(node domain.NodeRef, name string) error
	HasAttribute(node domain.NodeRef, name string) bool
	Attributes(node domain.NodeRef) ([]domain.Attribute, error)

	Connect(src, dst domain.Plug) error
	Disconnect(src, dst domain.Plug) error

	// ConnectedTo returns the plugs linked to p, as destination (incoming) and/or source (outgoing).
	ConnectedTo(p domain.Plug, asDst, asSrc bool) ([]domain.Plug, error)

	Parent(p domain.Plug) (domain.Plug, error)
	Child(p domain.Plug, index int) (domain.Plug, error)

	Double(p domain.Plug) (float64, error)
	SetDouble(p domain.Plug, v float64) error
	Bool(p domain.Plug) (bool, error)
	SetBool(p domain.Plug, v bool) error
}
