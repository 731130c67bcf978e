package runtime

import (
	"errors"
	"time"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/aretw0/dgwatch/pkg/registry"
)

// WatcherState is the state of a ConnectionWatcher.
type WatcherState int

const (
	Idle WatcherState = iota
	Armed
)

func (s WatcherState) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// ConnectionWatcher observes the trigger attribute of one node. When a peer is wired
// into the trigger it installs a ValueReactor on that peer; when the wire is cut it
// tears subscriptions down again.
type ConnectionWatcher struct {
	graph    ports.Graph
	registry *registry.Registry
	reactor  *ValueReactor
	node     domain.NodeRef
	trigger  string
	opts     options

	state  WatcherState
	target domain.NodeRef
	handle registry.Handle
	group  *watchGroup
	owned  []registry.Handle
}

// NewConnectionWatcher creates an idle watcher for node's trigger attribute.
// Watchers of the same callback node type share a group, so a reactor on a common
// target outlives any single watcher's disconnection.
func NewConnectionWatcher(g ports.Graph, reg *registry.Registry, node domain.NodeRef, trigger string, reactor *ValueReactor, opts ...Option) *ConnectionWatcher {
	w := &ConnectionWatcher{
		graph:    g,
		registry: reg,
		reactor:  reactor,
		node:     node,
		trigger:  trigger,
		opts:     newOptions(opts),
	}
	w.group = w.opts.group
	if w.group == nil {
		w.group = newWatchGroup()
	}
	w.group.join(w)
	return w
}

// State returns the current watcher state.
func (w *ConnectionWatcher) State() WatcherState {
	return w.state
}

// Target returns the peer the watcher is armed on, if any.
func (w *ConnectionWatcher) Target() (domain.NodeRef, bool) {
	return w.target, w.state == Armed
}

// Handle is the host callback for attribute events on the watched node.
func (w *ConnectionWatcher) Handle(ev domain.AttributeEvent) {
	if ev.Plug.Attr != w.trigger {
		return
	}
	switch {
	case ev.IsIncomingConnection(domain.ConnectionMade):
		if err := w.arm(); err != nil {
			w.opts.logger.Error("unable to install feature", "node", w.node.Name, "error", err)
		}
	case ev.IsIncomingConnection(domain.ConnectionBroken):
		w.disarm()
	}
}

// arm resolves the connected peer and installs a reactor on it.
// A peer that is missing or fails the type predicate leaves the watcher idle without error.
func (w *ConnectionWatcher) arm() error {
	if w.state == Armed {
		return nil
	}
	peers, err := w.graph.ConnectedTo(domain.PlugOf(w.node, w.trigger), true, false)
	if err != nil || len(peers) != 1 {
		w.opts.logger.Debug("trigger has no single peer", "node", w.node.Name, "peers", len(peers))
		return nil
	}
	peer := peers[0].Node

	nodeType, err := w.graph.NodeType(peer)
	if err != nil || !w.opts.accepts(nodeType) {
		w.opts.logger.Debug("peer ignored", "node", w.node.Name, "peer", peer.Name, "type", nodeType)
		return nil
	}

	h, ok := w.registry.Find(peer, domain.ValueWatch)
	if ok {
		w.opts.logger.Debug("peer already watched", "peer", peer.Name)
	} else {
		h, err = w.registry.Install(peer, domain.ValueWatch, w.reactor.Handle)
		if err != nil {
			return err
		}
		w.opts.logger.Info("feature installed", "node", w.node.Name, "target", peer.Name)
	}
	w.group.acquire(peer, h)
	w.transition(Armed, peer, h)
	return nil
}

func (w *ConnectionWatcher) disarm() {
	if w.state != Armed {
		return
	}
	target := w.target

	switch w.opts.teardown {
	case TeardownTarget:
		w.releaseTarget()
		w.opts.logger.Info("feature removed", "node", w.node.Name, "target", target.Name)
	default:
		n := w.registry.RemoveAll()
		w.group.reset()
		w.opts.logger.Info("removed feature", "node", w.node.Name, "target", target.Name, "subscriptions", n)
	}
}

// releaseTarget drops this watcher's hold on its target's reactor and removes the
// reactor once no other armed watcher shares it.
func (w *ConnectionWatcher) releaseTarget() {
	if w.state != Armed {
		return
	}
	if w.group.release(w.target, w.handle) {
		if err := w.registry.Remove(w.handle); err != nil && !errors.Is(err, domain.ErrNotFound) {
			w.opts.logger.Warn("failed to remove reactor", "target", w.target.Name, "error", err)
		}
	} else {
		w.opts.logger.Debug("reactor still shared", "target", w.target.Name)
	}
	w.transition(Idle, domain.NodeRef{}, "")
}

// release removes the subscriptions this watcher's node owns and leaves the group.
func (w *ConnectionWatcher) release() {
	w.releaseTarget()
	for _, h := range w.owned {
		if err := w.registry.Remove(h); err != nil && !errors.Is(err, domain.ErrNotFound) {
			w.opts.logger.Warn("failed to remove subscription", "node", w.node.Name, "error", err)
		}
	}
	w.owned = nil
	w.group.leave(w)
}

func (w *ConnectionWatcher) transition(to WatcherState, target domain.NodeRef, h registry.Handle) {
	from := w.state
	w.state, w.target, w.handle = to, target, h
	if from == to {
		return
	}
	if w.opts.hooks.OnWatcherTransition != nil {
		evTarget := target.Name
		if to == Idle {
			evTarget = ""
		}
		w.opts.hooks.OnWatcherTransition(&domain.WatcherEvent{
			Timestamp: time.Now(),
			Node:      w.node.Name,
			Target:    evTarget,
			From:      from.String(),
			To:        to.String(),
		})
	}
}
