package runtime

import (
	"sync"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/registry"
)

// lease counts the watchers armed on one target through the same reactor handle.
type lease struct {
	handle registry.Handle
	refs   int
}

// watchGroup is the state shared by the watchers of one node type: who is alive and
// which reactors they hold.
type watchGroup struct {
	mu       sync.Mutex
	leases   map[domain.NodeRef]*lease
	watchers map[*ConnectionWatcher]struct{}
}

func newWatchGroup() *watchGroup {
	return &watchGroup{
		leases:   make(map[domain.NodeRef]*lease),
		watchers: make(map[*ConnectionWatcher]struct{}),
	}
}

func (g *watchGroup) join(w *ConnectionWatcher) {
	g.mu.Lock()
	g.watchers[w] = struct{}{}
	g.mu.Unlock()
}

func (g *watchGroup) leave(w *ConnectionWatcher) {
	g.mu.Lock()
	delete(g.watchers, w)
	g.mu.Unlock()
}

// acquire records one more watcher armed on target through h.
func (g *watchGroup) acquire(target domain.NodeRef, h registry.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.leases[target]; ok && l.handle == h {
		l.refs++
		return
	}
	g.leases[target] = &lease{handle: h, refs: 1}
}

// release drops one reference on target and reports whether it was the last one.
func (g *watchGroup) release(target domain.NodeRef, h registry.Handle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.leases[target]
	if !ok || l.handle != h {
		return true
	}
	l.refs--
	if l.refs > 0 {
		return false
	}
	delete(g.leases, target)
	return true
}

// reset forgets every lease and returns every member to Idle. It follows a
// registry-wide RemoveAll, after which no member holds a live subscription.
func (g *watchGroup) reset() {
	g.mu.Lock()
	members := make([]*ConnectionWatcher, 0, len(g.watchers))
	for w := range g.watchers {
		members = append(members, w)
	}
	g.leases = make(map[domain.NodeRef]*lease)
	g.mu.Unlock()

	for _, w := range members {
		w.transition(Idle, domain.NodeRef{}, "")
	}
}
