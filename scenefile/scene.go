package scenefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/phanxgames/fluid"
	"gopkg.in/yaml.v3"
)

// Scene is a parsed scene file.
type Scene struct {
	Root     *fluid.Item
	Viewport fluid.Size
	// States holds the initial states per item label.
	States map[string][]fluid.State

	exposed []exposure
}

type exposure struct {
	item *fluid.Item
	name string
}

// Load reads and parses the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a YAML scene and validates every item's configuration.
func Parse(data []byte) (*Scene, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if raw == nil {
		return nil, errors.New("parse scene: empty document")
	}
	doc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	sc := &Scene{Viewport: fluid.DefaultViewport, States: make(map[string][]fluid.State)}
	if doc.Viewport != nil {
		sc.Viewport = fluid.Size{Width: doc.Viewport.Width, Height: doc.Viewport.Height}
	}
	seen := make(map[string]bool)
	root, err := sc.build(&doc.Root, seen)
	if err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	sc.Root = root

	var errs []error
	root.Walk(func(it *fluid.Item) {
		errs = append(errs, it.Config.Validate(it.Label()))
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scene) build(d *itemDoc, seen map[string]bool) (*fluid.Item, error) {
	if d.Label == "" {
		return nil, errors.New("item without label")
	}
	if seen[d.Label] {
		return nil, fmt.Errorf("duplicate label %q", d.Label)
	}
	seen[d.Label] = true

	it := fluid.NewItem(d.Label)
	if d.Metrics != nil {
		it.SetMetrics(fluid.Rect{X: d.Metrics.X, Y: d.Metrics.Y, Width: d.Metrics.Width, Height: d.Metrics.Height})
	}
	for k, v := range d.Values {
		it.Set(k, v)
	}
	for _, name := range d.Expose {
		sc.exposed = append(sc.exposed, exposure{item: it, name: name})
	}
	for _, s := range d.States {
		sc.States[d.Label] = append(sc.States[d.Label], fluid.State{Name: s, Active: true})
	}

	var err error
	cfg := &it.Config
	if cfg.Animation, err = animation(d.Animation); err != nil {
		return nil, fmt.Errorf("item %q: %w", d.Label, err)
	}
	if d.ChildAnimation != nil {
		cfg.ChildAnimation = fluid.ChildAnimation{
			Type:      d.ChildAnimation.Type,
			Direction: d.ChildAnimation.Direction,
			Stagger:   d.ChildAnimation.Stagger,
		}
		if steps := d.ChildAnimation.Staggers; len(steps) > 0 {
			cfg.ChildAnimation.StaggerFunc = func(fluid.Rect, []fluid.Rect) []time.Duration { return steps }
		}
	}
	if cfg.When, err = rules(d.When); err != nil {
		return nil, fmt.Errorf("item %q: when: %w", d.Label, err)
	}
	if cfg.OnEnter, err = rules(d.OnEnter); err != nil {
		return nil, fmt.Errorf("item %q: onEnter: %w", d.Label, err)
	}
	if cfg.OnExit, err = rules(d.OnExit); err != nil {
		return nil, fmt.Errorf("item %q: onExit: %w", d.Label, err)
	}

	for i := range d.Children {
		child, err := sc.build(&d.Children[i], seen)
		if err != nil {
			return nil, err
		}
		it.AddChild(child)
	}
	return it, nil
}

func animation(d *animationDoc) (fluid.Animation, error) {
	if d == nil {
		return nil, nil
	}
	if d.Spring != "" || d.Stiffness != 0 || d.Damping != 0 || d.Mass != 0 {
		s := fluid.SpringDefault
		if d.Spring != "" {
			p, ok := springs[d.Spring]
			if !ok {
				return nil, fmt.Errorf("unknown spring %q", d.Spring)
			}
			s = p
		}
		if d.Stiffness != 0 {
			s.Stiffness = d.Stiffness
		}
		if d.Damping != 0 {
			s.Damping = d.Damping
		}
		if d.Mass != 0 {
			s.Mass = d.Mass
		}
		s.Delay = d.Delay
		return s, nil
	}
	t := fluid.Timing{Duration: d.Duration, Delay: d.Delay}
	if d.Duration == 0 {
		t.Duration = fluid.DefaultDuration
	}
	if d.Easing != "" {
		fn, ok := fluid.EasingByName(d.Easing)
		if !ok {
			return nil, fmt.Errorf("unknown easing %q", d.Easing)
		}
		t.Easing = fn
	}
	return t, nil
}

var springs = map[string]fluid.Spring{
	"default":    fluid.SpringDefault,
	"gentle":     fluid.SpringGentle,
	"wobbly":     fluid.SpringWobbly,
	"wobblySlow": fluid.SpringWobblySlow,
	"stiff":      fluid.SpringStiff,
	"slow":       fluid.SpringSlow,
	"molasses":   fluid.SpringMolasses,
}

func rules(docs []ruleDoc) ([]fluid.Rule, error) {
	out := make([]fluid.Rule, 0, len(docs))
	for i := range docs {
		r, err := rule(&docs[i])
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func rule(d *ruleDoc) (fluid.Rule, error) {
	anim, err := animation(d.Animation)
	if err != nil {
		return nil, err
	}
	base := fluid.RuleBase{State: d.State, Animation: anim, Loop: d.Loop, Flip: d.Flip, Yoyo: d.Yoyo}

	shapes := 0
	for _, set := range []bool{d.Style != nil, d.Interpolations != nil, d.Links != nil, d.From != ""} {
		if set {
			shapes++
		}
	}
	if shapes != 1 {
		return nil, errors.New("a rule needs exactly one of style, interpolations, links or from")
	}

	switch {
	case d.Style != nil:
		return &fluid.StyleRule{RuleBase: base, Style: d.Style}, nil
	case d.Interpolations != nil:
		ips := make([]fluid.Interpolation, 0, len(d.Interpolations))
		for _, ip := range d.Interpolations {
			a, err := animation(ip.Animation)
			if err != nil {
				return nil, fmt.Errorf("interpolation %q: %w", ip.Key, err)
			}
			ips = append(ips, fluid.Interpolation{
				Key: ip.Key,
				InterpolationConfig: fluid.InterpolationConfig{
					InputRange:  ip.Input,
					OutputRange: ip.Output,
					Extrapolate: ip.Extrapolate,
				},
				Animation: a,
			})
		}
		return &fluid.InterpolationRule{RuleBase: base, Interpolations: ips}, nil
	case d.Links != nil:
		links := make([]fluid.ValueInterpolation, 0, len(d.Links))
		for _, l := range d.Links {
			links = append(links, fluid.ValueInterpolation{
				Key:   l.Key,
				Value: fluid.ValueRef{OwnerLabel: l.Owner, ValueName: l.Value},
				InterpolationConfig: fluid.InterpolationConfig{
					InputRange:  l.Input,
					OutputRange: l.Output,
					Extrapolate: l.Extrapolate,
				},
			})
		}
		return &fluid.ValueRule{RuleBase: base, Links: links}, nil
	default:
		return &fluid.SharedRule{RuleBase: base, FromLabel: d.From}, nil
	}
}

// Stage builds a stage for the scene: exposed values are registered, every
// item is mounted and the initial states are applied. Playback of the
// mount batch waits for the runner's idle signal.
func (sc *Scene) Stage(ctx context.Context, opts ...fluid.Option) (*fluid.Stage, error) {
	opts = append([]fluid.Option{fluid.WithViewport(sc.Viewport)}, opts...)
	st := fluid.NewStage(sc.Root, opts...)
	sc.Expose(st.Registry())
	if err := st.Mount(ctx); err != nil {
		st.Close()
		return nil, err
	}
	var err error
	sc.Root.Walk(func(it *fluid.Item) {
		if err != nil {
			return
		}
		if states := sc.States[it.Label()]; len(states) > 0 {
			next := slices.Concat(st.States(it.Label()), states)
			err = st.SetStates(ctx, it.Label(), next)
		}
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Expose registers every value the scene marks as exposed with reg, so
// value-linked rules can find them.
func (sc *Scene) Expose(reg *fluid.Registry) {
	for _, e := range sc.exposed {
		e.item.Expose(reg, e.name, e.item.Value(e.name))
	}
}
