package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/google/uuid"
)

// Handle identifies a subscription owned by a Registry.
type Handle string

// Subscription is a live host callback tracked by the registry.
type Subscription struct {
	Handle    Handle
	Target    domain.NodeRef
	Kind      domain.SubscriptionKind
	Installed time.Time

	hostID ports.CallbackID
}

// Registry is the table of active observer subscriptions.
// It is the only place host-side callbacks are released, so nothing outlives its intended scope.
//
// The registry does not de-duplicate installs: callers that need at most one
// subscription per target check Watching first.
type Registry struct {
	mu     sync.Mutex
	host   ports.Messages
	subs   map[Handle]*Subscription
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks for installs and removals.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// New creates an empty registry bound to the host's message API.
func New(host ports.Messages, opts ...Option) *Registry {
	r := &Registry{
		host:   host,
		subs:   make(map[Handle]*Subscription),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Install subscribes fn to attribute events on target.
// If the host refuses, nothing is recorded and the error wraps domain.ErrSubscriptionFailed.
func (r *Registry) Install(target domain.NodeRef, kind domain.SubscriptionKind, fn ports.AttributeCallback) (Handle, error) {
	id, err := r.host.AddAttributeChangedCallback(target, fn)
	if err != nil {
		return "", subscriptionFailed(target, kind, err)
	}
	return r.record(target, kind, id), nil
}

// InstallRemoval subscribes fn to the deletion of target.
func (r *Registry) InstallRemoval(target domain.NodeRef, fn ports.NodeCallback) (Handle, error) {
	id, err := r.host.AddNodePreRemovalCallback(target, fn)
	if err != nil {
		return "", subscriptionFailed(target, domain.RemovalWatch, err)
	}
	return r.record(target, domain.RemovalWatch, id), nil
}

func subscriptionFailed(target domain.NodeRef, kind domain.SubscriptionKind, err error) error {
	if !errors.Is(err, domain.ErrSubscriptionFailed) {
		err = fmt.Errorf("%w: %w", domain.ErrSubscriptionFailed, err)
	}
	return fmt.Errorf("install %s on %s: %w", kind, target.Name, err)
}

func (r *Registry) record(target domain.NodeRef, kind domain.SubscriptionKind, id ports.CallbackID) Handle {
	sub := &Subscription{
		Handle:    Handle(uuid.NewString()),
		Target:    target,
		Kind:      kind,
		Installed: time.Now(),
		hostID:    id,
	}

	r.mu.Lock()
	r.subs[sub.Handle] = sub
	r.mu.Unlock()

	r.logger.Debug("subscription installed", "handle", sub.Handle, "target", target.Name, "kind", kind)
	if r.hooks.OnInstall != nil {
		r.hooks.OnInstall(sub.event())
	}
	return sub.Handle
}

// Remove releases a single subscription. Unknown handles are an error.
func (r *Registry) Remove(h Handle) error {
	r.mu.Lock()
	sub, ok := r.subs[h]
	if ok {
		delete(r.subs, h)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: subscription %s", domain.ErrNotFound, h)
	}
	r.release(sub)
	return nil
}

// RemoveAll releases every subscription and returns how many were removed.
// It is idempotent and safe to call on an empty registry.
func (r *Registry) RemoveAll() int {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[Handle]*Subscription)
	r.mu.Unlock()

	for _, sub := range sorted(subs) {
		r.release(sub)
	}
	if len(subs) > 0 {
		r.logger.Info("removed all subscriptions", "count", len(subs))
	}
	return len(subs)
}

// release runs without the registry lock; the host may dispatch re-entrantly.
func (r *Registry) release(sub *Subscription) {
	if err := r.host.RemoveCallback(sub.hostID); err != nil {
		r.logger.Warn("host failed to release callback", "handle", sub.Handle, "error", err)
	}
	r.logger.Debug("subscription removed", "handle", sub.Handle, "target", sub.Target.Name, "kind", sub.Kind)
	if r.hooks.OnRemove != nil {
		r.hooks.OnRemove(sub.event())
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Watching reports whether a subscription of kind exists for target.
func (r *Registry) Watching(target domain.NodeRef, kind domain.SubscriptionKind) bool {
	_, ok := r.Find(target, kind)
	return ok
}

// Find returns the handle of the first subscription of kind on target.
func (r *Registry) Find(target domain.NodeRef, kind domain.SubscriptionKind) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range sorted(r.subs) {
		if sub.Target == target && sub.Kind == kind {
			return sub.Handle, true
		}
	}
	return "", false
}

// Subscriptions returns a snapshot of active subscriptions in install order.
func (r *Registry) Subscriptions() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := sorted(r.subs)
	out := make([]Subscription, len(list))
	for i, sub := range list {
		out[i] = *sub
	}
	return out
}

func sorted(subs map[Handle]*Subscription) []*Subscription {
	list := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		list = append(list, sub)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].hostID != list[j].hostID {
			return list[i].hostID < list[j].hostID
		}
		return list[i].Installed.Before(list[j].Installed)
	})
	return list
}

func (s *Subscription) event() *domain.SubscriptionEvent {
	return &domain.SubscriptionEvent{
		Timestamp: time.Now(),
		Handle:    string(s.Handle),
		Target:    s.Target.Name,
		Kind:      s.Kind,
	}
}
