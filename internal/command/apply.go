// Package command implements the installer that wires a selected transform into a
// new callback node, as a single undoable edit.
package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/dgwatch/internal/runtime"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// Name is the command name shown in usage text.
const Name = "callbackNodeExample"

// Usage is printed for the help flag.
const Usage = `Usage: callbackNodeExample [-h] [-n <node>]

Creates a callbackNodeExample node and connects the selected transform to it.
Changes to the transform's translateX then drive translateY and translateZ.

Flags:
  -h, --help        print this message
  -n, --node <name> node to wire in (defaults to the current selection)
`

// Args are the parsed installer arguments.
type Args struct {
	Help      bool
	Selection []domain.NodeRef
}

// Result describes a successful install.
type Result struct {
	Target domain.NodeRef
	Node   domain.NodeRef
	Steps  []string
}

// Apply is the installer command. It keeps its last edit for Undo and Redo.
type Apply struct {
	graph    ports.Graph
	nodeType domain.NodeType
	out      io.Writer
	logger   *slog.Logger

	args     Args
	modifier *Modifier
	result   *Result
	undoable bool
}

// Option configures an Apply command.
type Option func(*Apply)

// WithLogger sets the command logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Apply) {
		a.logger = logger
	}
}

// WithOutput sets where usage text is written.
func WithOutput(w io.Writer) Option {
	return func(a *Apply) {
		a.out = w
	}
}

// WithNodeType overrides the node type the command creates.
func WithNodeType(t domain.NodeType) Option {
	return func(a *Apply) {
		a.nodeType = t
	}
}

// NewApply creates an installer over g.
func NewApply(g ports.Graph, opts ...Option) *Apply {
	a := &Apply{
		graph:    g,
		nodeType: runtime.NodeTypeCallback,
		out:      io.Discard,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		modifier: NewModifier(g),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Do parses args and performs the install.
func (a *Apply) Do(args Args) (*Result, error) {
	a.args = args
	if args.Help {
		a.undoable = false
		_, err := io.WriteString(a.out, Usage)
		return nil, err
	}
	a.undoable = true
	return a.Redo()
}

// Redo performs the install for the arguments given to Do.
// Nothing is left behind on failure.
func (a *Apply) Redo() (*Result, error) {
	a.modifier = NewModifier(a.graph)
	a.result = nil

	target, err := a.validate()
	if err != nil {
		a.logger.Error("install rejected", "error", err)
		return nil, err
	}

	res, err := a.install(target)
	if err != nil {
		if uerr := a.modifier.UndoIt(); uerr != nil {
			a.logger.Error("rollback incomplete", "error", uerr)
		}
		a.logger.Error("install failed", "target", target.Name, "error", err)
		return nil, err
	}

	a.result = res
	a.logger.Info("installed", "target", target.Name, "node", res.Node.Name)
	return res, nil
}

func (a *Apply) validate() (domain.NodeRef, error) {
	if n := len(a.args.Selection); n != 1 {
		return domain.NodeRef{}, fmt.Errorf("%w: select exactly one node, got %d", domain.ErrInvalidSelection, n)
	}
	if existing := a.graph.Nodes(a.nodeType); len(existing) > 0 {
		return domain.NodeRef{}, fmt.Errorf("%w: %s already exists", domain.ErrAlreadyInstalled, existing[0].Name)
	}
	target := a.args.Selection[0]
	if !a.graph.Exists(target) {
		return domain.NodeRef{}, fmt.Errorf("%w: %s is not a dependency node", domain.ErrInvalidNode, target.Name)
	}
	return target, nil
}

func (a *Apply) install(target domain.NodeRef) (*Result, error) {
	node, err := a.modifier.CreateNode(a.nodeType, "")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", a.nodeType, err)
	}

	if !a.graph.HasAttribute(target, runtime.AttrCallback) {
		if err := a.modifier.AddAttribute(target, domain.MessageAttribute(runtime.AttrCallback)); err != nil {
			return nil, fmt.Errorf("add %s to %s: %w", runtime.AttrCallback, target.Name, err)
		}
	}

	src := domain.PlugOf(target, runtime.AttrCallback)
	dst := domain.PlugOf(node, runtime.AttrTransform)
	if err := a.modifier.Connect(src, dst); err != nil {
		return nil, fmt.Errorf("connect %s: %w", target.Name, err)
	}

	return &Result{Target: target, Node: node, Steps: a.modifier.Steps()}, nil
}

// Undo reverses the last successful install.
func (a *Apply) Undo() error {
	if err := a.modifier.UndoIt(); err != nil {
		return err
	}
	if a.result != nil {
		a.logger.Info("install undone", "node", a.result.Node.Name)
	}
	a.result = nil
	return nil
}

// IsUndoable reports whether the last Do changed the graph's edit history.
// Help requests are not.
func (a *Apply) IsUndoable() bool {
	return a.undoable
}

// Pending returns the number of recorded steps Undo would reverse.
func (a *Apply) Pending() int {
	return a.modifier.Len()
}

// Result returns the last successful install, if any.
func (a *Apply) Result() (*Result, bool) {
	return a.result, a.result != nil
}
