package runtime

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
)

// SpiralFunc maps the watched value x and the current z to the new y and z.
type SpiralFunc func(x, z float64) (y, newZ float64)

// Spiral moves a node along a spiral as x changes.
func Spiral(x, z float64) (float64, float64) {
	return math.Sin(x), math.Cos(z + x)
}

// Plugs is the slice of the host graph a ValueReactor needs.
type Plugs interface {
	Parent(p domain.Plug) (domain.Plug, error)
	Child(p domain.Plug, index int) (domain.Plug, error)
	Double(p domain.Plug) (float64, error)
	SetDouble(p domain.Plug, v float64) error
}

var _ Plugs = (ports.Graph)(nil)

// Sibling indices of the Y and Z channels inside the watched compound.
const (
	siblingY = 1
	siblingZ = 2
)

// ValueReactor rewrites the Y and Z siblings of the watched attribute whenever the
// watched attribute is set.
type ValueReactor struct {
	plugs Plugs
	opts  options
}

// NewValueReactor creates a reactor writing through plugs.
func NewValueReactor(plugs Plugs, opts ...Option) *ValueReactor {
	return &ValueReactor{plugs: plugs, opts: newOptions(opts)}
}

// Handle is the host callback. Resolution failures are expected during arbitrary
// user edits and are swallowed so scene editing is never interrupted.
func (r *ValueReactor) Handle(ev domain.AttributeEvent) {
	if _, err := r.React(ev); err != nil {
		r.opts.logger.Debug("reaction skipped", "plug", ev.Plug.String(), "error", err)
		r.notify(&domain.ReactionEvent{Timestamp: time.Now(), Target: ev.Plug.Node.Name, Skipped: err.Error()})
	}
}

// Triggers reports whether ev should cause a reaction.
func (r *ValueReactor) Triggers(ev domain.AttributeEvent) bool {
	return ev.Is(domain.ValueSet, domain.Incoming) && ev.Plug.Attr == r.opts.watched
}

// React evaluates one event. It returns (nil, nil) when the event does not trigger,
// and an error wrapping domain.ErrResolution when no write was possible.
// The Y and Z writes are independent: a failed Z write does not roll Y back.
func (r *ValueReactor) React(ev domain.AttributeEvent) (*domain.ReactionEvent, error) {
	if !r.Triggers(ev) {
		return nil, nil
	}

	x, err := r.plugs.Double(ev.Plug)
	if err != nil {
		return nil, resolution("read %s", ev.Plug, err)
	}
	parent, err := r.plugs.Parent(ev.Plug)
	if err != nil {
		return nil, resolution("parent of %s", ev.Plug, err)
	}
	yPlug, err := r.plugs.Child(parent, siblingY)
	if err != nil {
		return nil, resolution("y sibling of %s", ev.Plug, err)
	}
	zPlug, err := r.plugs.Child(parent, siblingZ)
	if err != nil {
		return nil, resolution("z sibling of %s", ev.Plug, err)
	}
	z, err := r.plugs.Double(zPlug)
	if err != nil {
		return nil, resolution("read %s", zPlug, err)
	}

	y, newZ := r.opts.spiral(x, z)
	if err := r.plugs.SetDouble(yPlug, y); err != nil {
		return nil, resolution("write %s", yPlug, err)
	}
	if err := r.plugs.SetDouble(zPlug, newZ); err != nil {
		return nil, resolution("write %s", zPlug, err)
	}

	reaction := &domain.ReactionEvent{
		Timestamp: time.Now(),
		Target:    ev.Plug.Node.Name,
		X:         x,
		Y:         y,
		Z:         newZ,
	}
	r.opts.logger.Debug("reacted", "target", reaction.Target, "x", x, "y", y, "z", newZ)
	r.notify(reaction)
	return reaction, nil
}

func (r *ValueReactor) notify(e *domain.ReactionEvent) {
	if r.opts.hooks.OnReact != nil {
		r.opts.hooks.OnReact(e)
	}
}

func resolution(what string, p domain.Plug, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrResolution, fmt.Sprintf(what, p), err)
}
