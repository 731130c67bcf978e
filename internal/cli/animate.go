package cli

import (
	"fmt"
	"sort"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

var easings = map[string]ease.TweenFunc{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
	"in-out-sine":  ease.InOutSine,
	"out-bounce":   ease.OutBounce,
	"out-elastic":  ease.OutElastic,
}

// Easing returns the named easing function.
func Easing(name string) (ease.TweenFunc, error) {
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (one of %v)", name, EasingNames())
	}
	return fn, nil
}

// EasingNames lists the accepted easing names.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Frame is the translate of the animated node after one step.
type Frame struct {
	Index   int
	X, Y, Z float64
}

// Animate tweens translateX of node from one value to another over frames steps,
// one SetDouble per frame, and reports the translate after each write.
func Animate(g ports.Graph, node domain.NodeRef, from, to float64, frames int, easing ease.TweenFunc, onFrame func(Frame)) error {
	if frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", frames)
	}
	tween := gween.New(float32(from), float32(to), float32(frames), easing)

	x := domain.PlugOf(node, domain.AttrTranslateX)
	for i := 1; i <= frames; i++ {
		v, _ := tween.Update(1)
		if err := g.SetDouble(x, float64(v)); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		f := Frame{Index: i}
		var err error
		if f.X, err = g.Double(x); err != nil {
			return err
		}
		if f.Y, err = g.Double(domain.PlugOf(node, domain.AttrTranslateY)); err != nil {
			return err
		}
		if f.Z, err = g.Double(domain.PlugOf(node, domain.AttrTranslateZ)); err != nil {
			return err
		}
		if onFrame != nil {
			onFrame(f)
		}
	}
	return nil
}
