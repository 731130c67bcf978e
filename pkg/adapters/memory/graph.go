package memory

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/google/uuid"
)

// Graph implements ports.Graph in memory.
//
// Notifications are delivered synchronously, in mutation order, on the goroutine that
// performed the mutation. The internal lock is never held while a callback runs, so
// callbacks may mutate the graph (and register or remove callbacks) re-entrantly.
type Graph struct {
	mu        sync.Mutex
	nodes     map[string]*node
	types     map[domain.NodeType]ports.NodeTypeSpec
	conns     []connection
	callbacks map[ports.CallbackID]*callback
	selection []string
	nextID    ports.CallbackID
	seq       uint64
	refuse    bool
	logger    *slog.Logger
}

type node struct {
	ref   domain.NodeRef
	typ   domain.NodeType
	seq   uint64
	attrs map[string]*domain.Attribute
	order []string
}

type connection struct {
	src domain.Plug
	dst domain.Plug
}

type callback struct {
	nodeUID string
	onAttr  ports.AttributeCallback
	onNode  ports.NodeCallback
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithLogger sets the logger used for graph diagnostics.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		g.logger = logger
	}
}

// NewGraph creates an empty graph that knows the built-in node types.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		nodes:     make(map[string]*node),
		types:     make(map[domain.NodeType]ports.NodeTypeSpec),
		callbacks: make(map[ports.CallbackID]*callback),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RefuseCallbacks makes subsequent callback registrations fail, simulating a host
// that rejects subscriptions.
func (g *Graph) RefuseCallbacks(refuse bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refuse = refuse
}

// CallbackCount returns the number of live callback registrations.
func (g *Graph) CallbackCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.callbacks)
}

// --- Node types ---

// RegisterNodeType makes a plugin node type available to CreateNode.
func (g *Graph) RegisterNodeType(nodeType domain.NodeType, spec ports.NodeTypeSpec) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if isBuiltin(nodeType) {
		return fmt.Errorf("cannot register built-in node type %q", nodeType)
	}
	if _, ok := g.types[nodeType]; ok {
		return fmt.Errorf("node type %q already registered", nodeType)
	}
	g.types[nodeType] = spec
	return nil
}

// DeregisterNodeType removes a plugin node type. Existing nodes of the type are kept.
func (g *Graph) DeregisterNodeType(nodeType domain.NodeType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.types[nodeType]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownNodeType, nodeType)
	}
	delete(g.types, nodeType)
	return nil
}

func isBuiltin(t domain.NodeType) bool {
	return t == domain.NodeTypeTransform || t == domain.NodeTypeDependency
}

// --- Nodes ---

// CreateNode creates a node and runs its type's post-constructor.
func (g *Graph) CreateNode(nodeType domain.NodeType, name string) (domain.NodeRef, error) {
	g.mu.Lock()
	var attrs []domain.Attribute
	var post func(domain.NodeRef) error
	switch {
	case nodeType == domain.NodeTypeTransform:
		attrs = domain.TransformAttributes()
	case nodeType == domain.NodeTypeDependency:
	default:
		spec, ok := g.types[nodeType]
		if !ok {
			g.mu.Unlock()
			return domain.NodeRef{}, fmt.Errorf("%w: %q", domain.ErrUnknownNodeType, nodeType)
		}
		attrs = spec.Attributes
		post = spec.PostConstructor
	}

	if name == "" {
		name = g.uniqueName(string(nodeType))
	} else if _, taken := g.nodes[name]; taken {
		g.mu.Unlock()
		return domain.NodeRef{}, fmt.Errorf("%w: name %q already in use", domain.ErrInvalidNode, name)
	}

	g.seq++
	n := &node{
		ref:   domain.NodeRef{Name: name, UID: uuid.NewString()},
		typ:   nodeType,
		seq:   g.seq,
		attrs: make(map[string]*domain.Attribute),
	}
	for _, attr := range attrs {
		a := normalize(attr)
		n.attrs[a.Name] = &a
		n.order = append(n.order, a.Name)
	}
	g.nodes[name] = n
	ref := n.ref
	g.mu.Unlock()

	g.logger.Debug("node created", "node", name, "type", nodeType)

	if post != nil {
		if err := post(ref); err != nil {
			_ = g.DeleteNode(ref)
			return domain.NodeRef{}, fmt.Errorf("post-constructor for %s failed: %w", name, err)
		}
	}
	return ref, nil
}

func (g *Graph) uniqueName(prefix string) string {
	for i := 1; ; i++ {
		candidate := prefix + strconv.Itoa(i)
		if _, taken := g.nodes[candidate]; !taken {
			return candidate
		}
	}
}

// DeleteNode runs pre-removal callbacks, breaks every connection of the node and removes it.
// Callbacks registered on the node are released by the graph.
func (g *Graph) DeleteNode(ref domain.NodeRef) error {
	g.mu.Lock()
	n, err := g.resolve(ref)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	removal := g.callbacksFor(n.ref.UID, func(cb *callback) bool { return cb.onNode != nil })
	g.mu.Unlock()

	for _, id := range removal {
		if cb, ok := g.callback(id); ok {
			cb.onNode(n.ref)
		}
	}

	g.mu.Lock()
	var broken []connection
	for _, c := range g.conns {
		if c.src.Node.UID == n.ref.UID || c.dst.Node.UID == n.ref.UID {
			broken = append(broken, c)
		}
	}
	g.mu.Unlock()
	for _, c := range broken {
		_ = g.Disconnect(c.src, c.dst)
	}

	g.mu.Lock()
	delete(g.nodes, n.ref.Name)
	for id, cb := range g.callbacks {
		if cb.nodeUID == n.ref.UID {
			delete(g.callbacks, id)
		}
	}
	g.selection = remove(g.selection, n.ref.Name)
	g.mu.Unlock()

	g.logger.Debug("node deleted", "node", n.ref.Name)
	return nil
}

// Lookup returns a reference to the live node with the given name.
func (g *Graph) Lookup(name string) (domain.NodeRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	if !ok {
		return domain.NodeRef{}, fmt.Errorf("%w: node %q", domain.ErrNotFound, name)
	}
	return n.ref, nil
}

// Exists reports whether ref still points at a live node.
func (g *Graph) Exists(ref domain.NodeRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.resolve(ref)
	return err == nil
}

// NodeType returns the type of the referenced node.
func (g *Graph) NodeType(ref domain.NodeRef) (domain.NodeType, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.resolve(ref)
	if err != nil {
		return "", err
	}
	return n.typ, nil
}

// Nodes lists live nodes in creation order.
func (g *Graph) Nodes(nodeType domain.NodeType) []domain.NodeRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sortedRefs(nodeType)
}

func (g *Graph) sortedRefs(nodeType domain.NodeType) []domain.NodeRef {
	list := make([]*node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if nodeType == "" || n.typ == nodeType {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	refs := make([]domain.NodeRef, len(list))
	for i, n := range list {
		refs[i] = n.ref
	}
	return refs
}

// resolve must be called with g.mu held.
func (g *Graph) resolve(ref domain.NodeRef) (*node, error) {
	n, ok := g.nodes[ref.Name]
	if !ok || (ref.UID != "" && n.ref.UID != ref.UID) {
		return nil, fmt.Errorf("%w: node %q", domain.ErrNotFound, ref.Name)
	}
	return n, nil
}

// resolvePlug must be called with g.mu held.
func (g *Graph) resolvePlug(p domain.Plug) (*node, *domain.Attribute, error) {
	n, err := g.resolve(p.Node)
	if err != nil {
		return nil, nil, err
	}
	attr, ok := n.attrs[p.Attr]
	if !ok {
		return nil, nil, fmt.Errorf("%w: plug %s", domain.ErrNotFound, p)
	}
	return n, attr, nil
}

// --- Selection ---

// Select replaces the active selection with the named nodes.
func (g *Graph) Select(names ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range names {
		if _, ok := g.nodes[name]; !ok {
			return fmt.Errorf("%w: node %q", domain.ErrNotFound, name)
		}
	}
	g.selection = append([]string(nil), names...)
	return nil
}

// Selection returns references to the selected nodes.
func (g *Graph) Selection() []domain.NodeRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	refs := make([]domain.NodeRef, 0, len(g.selection))
	for _, name := range g.selection {
		if n, ok := g.nodes[name]; ok {
			refs = append(refs, n.ref)
		}
	}
	return refs
}

// --- Attributes ---

// AddAttribute adds a dynamic attribute to a node.
func (g *Graph) AddAttribute(ref domain.NodeRef, attr domain.Attribute) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.resolve(ref)
	if err != nil {
		return err
	}
	if _, exists := n.attrs[attr.Name]; exists {
		return fmt.Errorf("%w: %s.%s", domain.ErrAttributeExists, ref.Name, attr.Name)
	}
	if attr.Parent != "" {
		parent, ok := n.attrs[attr.Parent]
		if !ok || parent.Kind != domain.KindCompound {
			return fmt.Errorf("%w: parent %s.%s is not a compound attribute", domain.ErrInvalidNode, ref.Name, attr.Parent)
		}
		if !contains(parent.Children, attr.Name) {
			parent.Children = append(parent.Children, attr.Name)
		}
	}
	a := normalize(attr)
	n.attrs[a.Name] = &a
	n.order = append(n.order, a.Name)
	return nil
}

// RemoveAttribute breaks the attribute's connections and removes it together with its children.
func (g *Graph) RemoveAttribute(ref domain.NodeRef, name string) error {
	g.mu.Lock()
	n, attr, err := g.resolvePlug(domain.PlugOf(ref, name))
	if err != nil {
		g.mu.Unlock()
		return err
	}
	doomed := append([]string{name}, attr.Children...)
	var broken []connection
	for _, c := range g.conns {
		for _, d := range doomed {
			if (c.src.Node.UID == n.ref.UID && c.src.Attr == d) || (c.dst.Node.UID == n.ref.UID && c.dst.Attr == d) {
				broken = append(broken, c)
				break
			}
		}
	}
	g.mu.Unlock()

	for _, c := range broken {
		_ = g.Disconnect(c.src, c.dst)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if attr.Parent != "" {
		if parent, ok := n.attrs[attr.Parent]; ok {
			parent.Children = remove(parent.Children, name)
		}
	}
	for _, d := range doomed {
		delete(n.attrs, d)
		n.order = remove(n.order, d)
	}
	return nil
}

// HasAttribute reports whether the node has the named attribute.
func (g *Graph) HasAttribute(ref domain.NodeRef, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, _, err := g.resolvePlug(domain.PlugOf(ref, name))
	return err == nil
}

// Attributes returns copies of the node's attributes in definition order.
func (g *Graph) Attributes(ref domain.NodeRef) ([]domain.Attribute, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.resolve(ref)
	if err != nil {
		return nil, err
	}
	return n.attributes(), nil
}

func (n *node) attributes() []domain.Attribute {
	out := make([]domain.Attribute, 0, len(n.order))
	for _, name := range n.order {
		a := *n.attrs[name]
		a.Children = append([]string(nil), a.Children...)
		out = append(out, a)
	}
	return out
}

func normalize(attr domain.Attribute) domain.Attribute {
	attr.Children = append([]string(nil), attr.Children...)
	switch attr.Kind {
	case domain.KindDouble:
		f, _ := domain.AsFloat(attr.Value)
		attr.Value = f
	case domain.KindBool:
		b, _ := attr.Value.(bool)
		attr.Value = b
	default:
		attr.Value = nil
	}
	return attr
}

// --- Plugs ---

// Parent returns the compound plug that owns p.
func (g *Graph) Parent(p domain.Plug) (domain.Plug, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, attr, err := g.resolvePlug(p)
	if err != nil {
		return domain.Plug{}, err
	}
	if attr.Parent == "" {
		return domain.Plug{}, fmt.Errorf("%w: %s has no parent", domain.ErrNotFound, p)
	}
	return domain.PlugOf(n.ref, attr.Parent), nil
}

// Child returns the index-th child of a compound plug.
func (g *Graph) Child(p domain.Plug, index int) (domain.Plug, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, attr, err := g.resolvePlug(p)
	if err != nil {
		return domain.Plug{}, err
	}
	if attr.Kind != domain.KindCompound {
		return domain.Plug{}, fmt.Errorf("%w: %s is not compound", domain.ErrTypeMismatch, p)
	}
	if index < 0 || index >= len(attr.Children) {
		return domain.Plug{}, fmt.Errorf("%w: %s has no child %d", domain.ErrNotFound, p, index)
	}
	return domain.PlugOf(n.ref, attr.Children[index]), nil
}

// Double reads a floating point plug.
func (g *Graph) Double(p domain.Plug) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, attr, err := g.resolvePlug(p)
	if err != nil {
		return 0, err
	}
	if attr.Kind != domain.KindDouble {
		return 0, fmt.Errorf("%w: %s is %s", domain.ErrTypeMismatch, p, attr.Kind)
	}
	return attr.Value.(float64), nil
}

// SetDouble writes a floating point plug and propagates the value downstream.
func (g *Graph) SetDouble(p domain.Plug, v float64) error {
	return g.set(p, domain.KindDouble, v)
}

// Bool reads a boolean plug.
func (g *Graph) Bool(p domain.Plug) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, attr, err := g.resolvePlug(p)
	if err != nil {
		return false, err
	}
	if attr.Kind != domain.KindBool {
		return false, fmt.Errorf("%w: %s is %s", domain.ErrTypeMismatch, p, attr.Kind)
	}
	return attr.Value.(bool), nil
}

// SetBool writes a boolean plug and propagates the value downstream.
func (g *Graph) SetBool(p domain.Plug, v bool) error {
	return g.set(p, domain.KindBool, v)
}

func (g *Graph) set(p domain.Plug, kind domain.AttributeKind, v any) error {
	g.mu.Lock()
	n, attr, err := g.resolvePlug(p)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	p.Node = n.ref
	if attr.Kind != kind {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", domain.ErrTypeMismatch, p, attr.Kind)
	}
	for _, c := range g.conns {
		if c.dst.Node.UID == n.ref.UID && c.dst.Attr == p.Attr {
			g.mu.Unlock()
			return fmt.Errorf("%w: %s is driven by %s", domain.ErrInvalidNode, p, c.src)
		}
	}
	g.mu.Unlock()

	g.propagate(p, v, map[string]bool{})
	return nil
}

// propagate stores v on p, notifies p's node and pushes v through outgoing connections.
func (g *Graph) propagate(p domain.Plug, v any, visited map[string]bool) {
	key := p.Node.UID + "." + p.Attr
	if visited[key] {
		return
	}
	visited[key] = true

	g.mu.Lock()
	n, attr, err := g.resolvePlug(p)
	if err != nil {
		g.mu.Unlock()
		return
	}
	attr.Value = v
	p.Node = n.ref
	var downstream []domain.Plug
	for _, c := range g.conns {
		if c.src.Node.UID == n.ref.UID && c.src.Attr == p.Attr {
			downstream = append(downstream, c.dst)
		}
	}
	g.mu.Unlock()

	g.emit(domain.AttributeEvent{Plug: p, Change: domain.ValueSet, Direction: domain.Incoming})

	for _, dst := range downstream {
		g.propagate(dst, v, visited)
	}
}

// --- Connections ---

// Connect links src to dst. A destination accepts at most one incoming connection.
func (g *Graph) Connect(src, dst domain.Plug) error {
	g.mu.Lock()
	sn, sa, err := g.resolvePlug(src)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	dn, da, err := g.resolvePlug(dst)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	src.Node, dst.Node = sn.ref, dn.ref
	if src == dst {
		g.mu.Unlock()
		return fmt.Errorf("%w: cannot connect %s to itself", domain.ErrInvalidNode, src)
	}
	if sa.Kind != da.Kind || sa.Kind == domain.KindCompound {
		g.mu.Unlock()
		return fmt.Errorf("%w: cannot connect %s (%s) to %s (%s)", domain.ErrTypeMismatch, src, sa.Kind, dst, da.Kind)
	}
	for _, c := range g.conns {
		if c.dst == dst {
			g.mu.Unlock()
			return fmt.Errorf("%w: %s already has an incoming connection from %s", domain.ErrInvalidNode, dst, c.src)
		}
	}
	g.conns = append(g.conns, connection{src: src, dst: dst})
	value := sa.Value
	g.mu.Unlock()

	g.logger.Debug("connected", "src", src.String(), "dst", dst.String())
	g.emit(domain.AttributeEvent{Plug: src, OtherPlug: dst, Change: domain.ConnectionMade, Direction: domain.Outgoing, OtherEndSet: true})
	g.emit(domain.AttributeEvent{Plug: dst, OtherPlug: src, Change: domain.ConnectionMade, Direction: domain.Incoming, OtherEndSet: true})

	if value != nil {
		g.propagate(dst, value, map[string]bool{})
	}
	return nil
}

// Disconnect removes the src → dst link.
func (g *Graph) Disconnect(src, dst domain.Plug) error {
	g.mu.Lock()
	idx := -1
	for i, c := range g.conns {
		if sameSlot(c.src, src) && sameSlot(c.dst, dst) {
			idx = i
			src, dst = c.src, c.dst
			break
		}
	}
	if idx < 0 {
		g.mu.Unlock()
		return fmt.Errorf("%w: no connection %s -> %s", domain.ErrNotFound, src, dst)
	}
	g.conns = append(g.conns[:idx], g.conns[idx+1:]...)
	g.mu.Unlock()

	g.logger.Debug("disconnected", "src", src.String(), "dst", dst.String())
	g.emit(domain.AttributeEvent{Plug: src, OtherPlug: dst, Change: domain.ConnectionBroken, Direction: domain.Outgoing, OtherEndSet: true})
	g.emit(domain.AttributeEvent{Plug: dst, OtherPlug: src, Change: domain.ConnectionBroken, Direction: domain.Incoming, OtherEndSet: true})
	return nil
}

// sameSlot compares plugs, treating an empty UID as a match by name.
func sameSlot(stored, query domain.Plug) bool {
	if stored.Attr != query.Attr || stored.Node.Name != query.Node.Name {
		return false
	}
	return query.Node.UID == "" || query.Node.UID == stored.Node.UID
}

// ConnectedTo returns the plugs linked to p.
func (g *Graph) ConnectedTo(p domain.Plug, asDst, asSrc bool) ([]domain.Plug, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, _, err := g.resolvePlug(p)
	if err != nil {
		return nil, err
	}
	var out []domain.Plug
	for _, c := range g.conns {
		if asDst && c.dst.Node.UID == n.ref.UID && c.dst.Attr == p.Attr {
			out = append(out, c.src)
		}
		if asSrc && c.src.Node.UID == n.ref.UID && c.src.Attr == p.Attr {
			out = append(out, c.dst)
		}
	}
	return out, nil
}

// --- Messages ---

// AddAttributeChangedCallback subscribes fn to attribute events on node.
func (g *Graph) AddAttributeChangedCallback(ref domain.NodeRef, fn ports.AttributeCallback) (ports.CallbackID, error) {
	return g.addCallback(ref, &callback{onAttr: fn})
}

// AddNodePreRemovalCallback subscribes fn to the node's deletion.
func (g *Graph) AddNodePreRemovalCallback(ref domain.NodeRef, fn ports.NodeCallback) (ports.CallbackID, error) {
	return g.addCallback(ref, &callback{onNode: fn})
}

func (g *Graph) addCallback(ref domain.NodeRef, cb *callback) (ports.CallbackID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refuse {
		return 0, fmt.Errorf("%w: host refused callback on %s", domain.ErrSubscriptionFailed, ref.Name)
	}
	n, err := g.resolve(ref)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailed, err)
	}
	g.nextID++
	cb.nodeUID = n.ref.UID
	g.callbacks[g.nextID] = cb
	return g.nextID, nil
}

// RemoveCallback releases a registration; unknown ids are ignored.
func (g *Graph) RemoveCallback(id ports.CallbackID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.callbacks, id)
	return nil
}

func (g *Graph) callback(id ports.CallbackID) (*callback, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.callbacks[id]
	return cb, ok
}

// callbacksFor must be called with g.mu held.
func (g *Graph) callbacksFor(uid string, match func(*callback) bool) []ports.CallbackID {
	var ids []ports.CallbackID
	for id, cb := range g.callbacks {
		if cb.nodeUID == uid && match(cb) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// emit delivers ev to the attribute callbacks of its node in registration order.
// A callback removed by an earlier callback in the same dispatch is skipped.
func (g *Graph) emit(ev domain.AttributeEvent) {
	g.mu.Lock()
	ids := g.callbacksFor(ev.Plug.Node.UID, func(cb *callback) bool { return cb.onAttr != nil })
	g.mu.Unlock()

	for _, id := range ids {
		if cb, ok := g.callback(id); ok {
			cb.onAttr(ev)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
