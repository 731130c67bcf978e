package dgwatch

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/dgwatch/internal/command"
	"github.com/aretw0/dgwatch/internal/runtime"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/aretw0/dgwatch/pkg/registry"
)

// TeardownPolicy decides what a watcher removes when its trigger connection breaks.
type TeardownPolicy = runtime.TeardownPolicy

const (
	// TeardownAll clears the whole registry on disconnection.
	TeardownAll = runtime.TeardownAll
	// TeardownTarget removes only the disconnected target's reactor.
	TeardownTarget = runtime.TeardownTarget
)

// NodeTypeCallback is the node type the plugin registers.
const NodeTypeCallback = runtime.NodeTypeCallback

// Args are the installer arguments.
type Args = command.Args

// Result describes a successful install.
type Result = command.Result

// Plugin is the high-level entry point: it owns the observer registry, registers the
// callback node type with a host graph and runs the installer with undo history.
type Plugin struct {
	graph    ports.Graph
	registry *registry.Registry
	nodeType *runtime.CallbackNodeType
	hooks    domain.LifecycleHooks
	teardown TeardownPolicy
	logger   *slog.Logger
	out      io.Writer

	mu      sync.Mutex
	loaded  bool
	history []*command.Apply
	redo    []*command.Apply
}

// Option defines a functional option for configuring the Plugin.
type Option func(*Plugin)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithRegistry injects an existing registry instead of creating one.
func WithRegistry(reg *registry.Registry) Option {
	return func(p *Plugin) {
		p.registry = reg
	}
}

// WithLifecycleHooks registers observability hooks for subscriptions, reactions and watcher transitions.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Plugin) {
		p.hooks = hooks
	}
}

// WithTeardown selects what a disconnection removes (default: TeardownAll).
func WithTeardown(policy TeardownPolicy) Option {
	return func(p *Plugin) {
		p.teardown = policy
	}
}

// WithOutput sets where the installer prints usage text.
func WithOutput(w io.Writer) Option {
	return func(p *Plugin) {
		p.out = w
	}
}

// New creates a plugin bound to a host graph. Call Load before Apply.
func New(g ports.Graph, opts ...Option) *Plugin {
	p := &Plugin{
		graph:    g,
		teardown: TeardownAll,
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.registry == nil {
		p.registry = registry.New(g,
			registry.WithLogger(p.logger),
			registry.WithLifecycleHooks(p.hooks),
		)
	}
	p.nodeType = runtime.NewCallbackNodeType(g, p.registry,
		runtime.WithLogger(p.logger),
		runtime.WithLifecycleHooks(p.hooks),
		runtime.WithTeardown(p.teardown),
	)
	return p
}

// Load registers the callback node type with the host.
func (p *Plugin) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	if err := p.graph.RegisterNodeType(NodeTypeCallback, p.nodeType.Spec()); err != nil {
		return fmt.Errorf("failed to register %s: %w", NodeTypeCallback, err)
	}
	p.loaded = true
	p.logger.Info("plugin loaded", "type", NodeTypeCallback, "id", fmt.Sprintf("%#x", runtime.NodeTypeID))
	return nil
}

// Unload deregisters the node type and releases every subscription.
// Nodes already in the graph are kept but no longer observed.
func (p *Plugin) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return nil
	}
	if err := p.graph.DeregisterNodeType(NodeTypeCallback); err != nil {
		return fmt.Errorf("failed to deregister %s: %w", NodeTypeCallback, err)
	}
	n := p.nodeType.Reset()
	p.loaded = false
	p.history, p.redo = nil, nil
	p.logger.Info("plugin unloaded", "subscriptions", n)
	return nil
}

// Loaded reports whether the node type is registered.
func (p *Plugin) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Apply runs the installer on the selection. Successful installs are pushed on the
// undo history and clear the redo history.
func (p *Plugin) Apply(args Args) (*Result, error) {
	if !p.Loaded() {
		return nil, fmt.Errorf("%w: plugin not loaded", domain.ErrUnknownNodeType)
	}
	cmd := command.NewApply(p.graph, command.WithLogger(p.logger), command.WithOutput(p.out))
	res, err := cmd.Do(args)
	if err != nil || !cmd.IsUndoable() {
		return res, err
	}

	p.mu.Lock()
	p.history = append(p.history, cmd)
	p.redo = nil
	p.mu.Unlock()
	return res, nil
}

// Undo reverses the most recent install.
func (p *Plugin) Undo() error {
	p.mu.Lock()
	if len(p.history) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: nothing to undo", domain.ErrNotFound)
	}
	cmd := p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	p.mu.Unlock()

	if err := cmd.Undo(); err != nil {
		return fmt.Errorf("undo failed: %w", err)
	}

	p.mu.Lock()
	p.redo = append(p.redo, cmd)
	p.mu.Unlock()
	return nil
}

// Redo re-applies the most recently undone install.
func (p *Plugin) Redo() (*Result, error) {
	p.mu.Lock()
	if len(p.redo) == 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to redo", domain.ErrNotFound)
	}
	cmd := p.redo[len(p.redo)-1]
	p.redo = p.redo[:len(p.redo)-1]
	p.mu.Unlock()

	res, err := cmd.Redo()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.history = append(p.history, cmd)
	p.mu.Unlock()
	return res, nil
}

// Registry returns the observer registry.
func (p *Plugin) Registry() *registry.Registry {
	return p.registry
}

// Watcher returns the watcher carried by a callback node.
func (p *Plugin) Watcher(node domain.NodeRef) (*runtime.ConnectionWatcher, error) {
	return p.nodeType.Watcher(node)
}

// Graph returns the host graph.
func (p *Plugin) Graph() ports.Graph {
	return p.graph
}

// ParseTeardownPolicy validates a policy name. Empty selects TeardownAll.
func ParseTeardownPolicy(s string) (TeardownPolicy, error) {
	return runtime.ParseTeardownPolicy(s)
}
