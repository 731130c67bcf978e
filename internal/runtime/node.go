package runtime

import (
	"fmt"
	"sync"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/aretw0/dgwatch/pkg/registry"
)

const (
	// NodeTypeCallback is the plugin node type that carries a ConnectionWatcher.
	NodeTypeCallback domain.NodeType = "callbackNodeExample"
	// NodeTypeID is the unique numeric id of NodeTypeCallback.
	NodeTypeID uint32 = 0x0007ffff

	// AttrTransform is the message attribute a target is wired into.
	AttrTransform = "transform"
	// AttrToggle is a keyable boolean carried by the node.
	AttrToggle = "toggle"
	// AttrCallback is the message attribute created on targets to wire them in.
	AttrCallback = "callback"
)

// CallbackNodeType wires a ConnectionWatcher into every node of NodeTypeCallback.
type CallbackNodeType struct {
	graph    ports.Graph
	registry *registry.Registry
	reactor  *ValueReactor
	opts     []Option
	o        options
	group    *watchGroup

	mu       sync.Mutex
	watchers map[string]*ConnectionWatcher
}

// NewCallbackNodeType creates the node type; it still has to be registered with the graph.
func NewCallbackNodeType(g ports.Graph, reg *registry.Registry, opts ...Option) *CallbackNodeType {
	group := newWatchGroup()
	return &CallbackNodeType{
		graph:    g,
		registry: reg,
		reactor:  NewValueReactor(g, opts...),
		opts:     append(opts[:len(opts):len(opts)], inGroup(group)),
		o:        newOptions(opts),
		group:    group,
		watchers: make(map[string]*ConnectionWatcher),
	}
}

// Spec returns the registration for ports.Graph.RegisterNodeType.
func (t *CallbackNodeType) Spec() ports.NodeTypeSpec {
	return ports.NodeTypeSpec{
		Attributes: []domain.Attribute{
			domain.MessageAttribute(AttrTransform),
			{Name: AttrToggle, Kind: domain.KindBool, Keyable: true, Value: false},
		},
		PostConstructor: t.construct,
	}
}

// construct installs the node's connection watcher and its removal watch.
// On failure the subscriptions are released, as a half-installed feature is worse than none.
func (t *CallbackNodeType) construct(node domain.NodeRef) error {
	w := NewConnectionWatcher(t.graph, t.registry, node, AttrTransform, t.reactor, t.opts...)

	h, err := t.registry.Install(node, domain.ConnectionWatch, w.Handle)
	if err != nil {
		t.fail(w, err)
		return err
	}
	w.owned = append(w.owned, h)
	if h, err = t.registry.InstallRemoval(node, t.removed); err != nil {
		t.fail(w, err)
		return err
	}
	w.owned = append(w.owned, h)

	t.mu.Lock()
	t.watchers[node.UID] = w
	t.mu.Unlock()
	return nil
}

func (t *CallbackNodeType) fail(w *ConnectionWatcher, err error) {
	t.o.logger.Error("unable to install example feature", "node", w.node.Name, "error", err)
	t.teardown(w)
}

// removed runs just before a callback node is deleted.
func (t *CallbackNodeType) removed(node domain.NodeRef) {
	t.mu.Lock()
	w, ok := t.watchers[node.UID]
	delete(t.watchers, node.UID)
	t.mu.Unlock()
	if !ok {
		return
	}

	n := t.teardown(w)
	t.o.logger.Info("removed feature", "node", node.Name, "subscriptions", n)
}

// teardown releases what a dying node holds. Under TeardownTarget that is its own
// watches and its share of the target's reactor; otherwise the whole registry.
func (t *CallbackNodeType) teardown(w *ConnectionWatcher) int {
	if t.o.teardown == TeardownTarget {
		before := t.registry.Len()
		w.release()
		return before - t.registry.Len()
	}
	t.group.leave(w)
	n := t.registry.RemoveAll()
	t.group.reset()
	return n
}

// Reset releases every subscription and returns all watchers to Idle.
func (t *CallbackNodeType) Reset() int {
	n := t.registry.RemoveAll()
	t.group.reset()
	return n
}

// Watcher returns the watcher of a live callback node.
func (t *CallbackNodeType) Watcher(node domain.NodeRef) (*ConnectionWatcher, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.watchers[node.UID]
	if !ok {
		return nil, fmt.Errorf("%w: no watcher on %s", domain.ErrNotFound, node.Name)
	}
	return w, nil
}

// Reactor returns the reactor shared by all watchers of this type.
func (t *CallbackNodeType) Reactor() *ValueReactor {
	return t.reactor
}
