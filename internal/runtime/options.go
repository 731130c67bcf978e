package runtime

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// TeardownPolicy decides what a watcher removes when its trigger connection breaks.
type TeardownPolicy string

const (
	// TeardownAll removes every subscription in the registry, including the watcher's own.
	TeardownAll TeardownPolicy = "all"
	// TeardownTarget removes only the reactor installed on the disconnected target.
	TeardownTarget TeardownPolicy = "target"
)

// ParseTeardownPolicy validates a policy name. Empty selects TeardownAll.
func ParseTeardownPolicy(s string) (TeardownPolicy, error) {
	switch TeardownPolicy(s) {
	case "", TeardownAll:
		return TeardownAll, nil
	case TeardownTarget:
		return TeardownTarget, nil
	}
	return "", fmt.Errorf("unknown teardown policy %q (want %q or %q)", s, TeardownAll, TeardownTarget)
}

type options struct {
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	teardown TeardownPolicy
	watched  string
	accepts  func(domain.NodeType) bool
	spiral   SpiralFunc
	group    *watchGroup
}

// Option configures watchers, reactors and the callback node type.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		teardown: TeardownAll,
		watched:  domain.AttrTranslateX,
		accepts:  IsTransform,
		spiral:   Spiral,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithTeardown selects what a disconnection removes.
func WithTeardown(policy TeardownPolicy) Option {
	return func(o *options) {
		o.teardown = policy
	}
}

// WithWatchedAttribute sets the child attribute whose value drives the reactor.
func WithWatchedAttribute(name string) Option {
	return func(o *options) {
		o.watched = name
	}
}

// WithTargetFilter sets the predicate a connected peer's type must satisfy.
func WithTargetFilter(accepts func(domain.NodeType) bool) Option {
	return func(o *options) {
		o.accepts = accepts
	}
}

// WithSpiral replaces the reactor's value function.
func WithSpiral(fn SpiralFunc) Option {
	return func(o *options) {
		o.spiral = fn
	}
}

// inGroup makes watchers share leases and teardown with the rest of the group.
func inGroup(g *watchGroup) Option {
	return func(o *options) {
		o.group = g
	}
}

// IsTransform accepts transform-like nodes.
func IsTransform(t domain.NodeType) bool {
	return t == domain.NodeTypeTransform
}
