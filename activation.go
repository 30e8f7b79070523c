package fluid

import (
	"context"
	"slices"
)

// Activation is one rule that fires in a resolution pass.
type Activation struct {
	Rule  Rule
	Phase Phase
	// When is true for rules from Configuration.When. A When rule firing on
	// exit undoes itself; OnEnter/OnExit rules always play forward.
	When bool
}

// MatchRules returns the rules of cfg that fire for changes: removed states
// first (When and OnExit, exit phase), then added and changed states (When
// and OnEnter, enter phase). A rule fires at most once per pass.
func MatchRules(cfg *Configuration, changes StateChanges) []Activation {
	if cfg == nil {
		return nil
	}
	var out []Activation
	seen := make(map[Rule]bool)
	add := func(rules []Rule, states []State, phase Phase, when bool) {
		for _, r := range rules {
			if r == nil || seen[r] || !containsState(states, r.StateName()) {
				continue
			}
			seen[r] = true
			out = append(out, Activation{Rule: r, Phase: phase, When: when})
		}
	}
	add(cfg.When, changes.Removed, PhaseExit, true)
	add(cfg.OnExit, changes.Removed, PhaseExit, false)
	add(cfg.When, changes.Added, PhaseEnter, true)
	add(cfg.OnEnter, changes.Added, PhaseEnter, false)
	add(cfg.When, changes.Changed, PhaseEnter, true)
	add(cfg.OnEnter, changes.Changed, PhaseEnter, false)
	return out
}

// Activator turns state changes of one element into animation requests.
type Activator struct {
	Item     Element
	Registry *Registry
	Runner   *Runner
	// Screen is passed to factory rules. Zero means DefaultViewport.
	Screen Size
}

// ValueLink is a value-linked property to install on the runner.
type ValueLink struct {
	Key    string
	Source *Value
	Config InterpolationConfig
}

// Subscription is a shared-rule subscription change.
type Subscription struct {
	Rule      *SharedRule
	Subscribe bool
}

// Activated is the outcome of one resolution pass, in application order.
type Activated struct {
	Activations   []Activation
	Requests      []*Request
	Links         []ValueLink
	Unlinks       []string
	Cancels       []string
	Subscriptions []Subscription

	// Registry effects, performed by Apply.
	published []Mirror
	mirrored  int
}

// Empty reports whether applying a would do nothing.
func (a *Activated) Empty() bool {
	return len(a.Requests) == 0 && len(a.Links) == 0 && len(a.Unlinks) == 0 &&
		len(a.Cancels) == 0 && len(a.Subscriptions) == 0 &&
		len(a.published) == 0 && a.mirrored == 0
}

// Resolve computes what changes fire for the element. states is the
// element's full current state list. Configuration errors are returned
// before anything is produced.
func (a *Activator) Resolve(states []State, changes StateChanges) (*Activated, error) {
	cfg := a.Item.Configuration()
	if cfg == nil {
		cfg = emptyConfiguration
	}
	label := a.Item.Label()

	for _, list := range [][]Rule{cfg.OnEnter, cfg.OnExit} {
		for _, r := range list {
			if sr, ok := r.(*SharedRule); ok && !containsState(states, sr.State) {
				return nil, configErrorf(label, sr.State, "could not find state for shared interpolation")
			}
		}
	}

	out := &Activated{Activations: MatchRules(cfg, changes)}
	for _, act := range out.Activations {
		if errs := validateRule(label, act.Rule); len(errs) > 0 {
			return nil, errs[0]
		}
		if act.When {
			if _, ok := act.Rule.(*SharedRule); ok {
				return nil, configErrorf(label, act.Rule.StateName(), "shared interpolations are only allowed in OnEnter/OnExit")
			}
		} else if err := checkTransientRepeat(label, act.Rule); err != nil {
			return nil, err
		}
	}

	if a.Registry != nil {
		a.mirrors(cfg, out)
	}
	for _, act := range out.Activations {
		if err := a.activate(cfg, act, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Apply installs a on the runner and registers its requests with actx.
// With a nil actx requests are committed directly. Style changes are
// published to subscribers and consumed mirrors are cleared here, so a
// failed Resolve leaves the registry untouched.
func (a *Activator) Apply(act *Activated, actx *AnimationContext) error {
	id := a.Item.ID()
	if a.Registry != nil {
		for _, m := range act.published {
			a.Registry.Publish(m.Source, m.Key, m.From, m.To)
		}
		if act.mirrored > 0 {
			a.Registry.ConsumeMirrors(a.Item.Label(), act.mirrored)
		}
	}
	for _, key := range act.Cancels {
		a.Runner.Cancel(id, key)
	}
	for _, key := range act.Unlinks {
		a.Runner.Unlink(id, key)
	}
	for _, l := range act.Links {
		a.Runner.Link(a.Item, l.Key, l.Source, l.Config)
	}
	if a.Registry != nil {
		for _, s := range act.Subscriptions {
			if s.Subscribe {
				a.Registry.Subscribe(s.Rule.FromLabel, a.Item.Label(), s.Rule)
			} else {
				a.Registry.Unsubscribe(s.Rule.FromLabel, a.Item.Label(), s.Rule)
			}
		}
	}
	if len(act.Requests) == 0 {
		return nil
	}
	if actx == nil {
		return a.Runner.Commit(context.Background(), a.Item, nil, act.Requests, false)
	}
	for _, r := range act.Requests {
		actx.Register(r)
	}
	return nil
}

func (a *Activator) activate(cfg *Configuration, act Activation, out *Activated) error {
	label := a.Item.Label()
	exit := act.When && act.Phase == PhaseExit
	var reqs []*Request

	switch r := act.Rule.(type) {
	case *StyleRule:
		keys := make([]string, 0, len(r.Style))
		for k := range r.Style {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			desc, _ := Property(key)
			target := r.Style[key]
			if exit {
				target = desc.Default
			}
			v := a.Item.Value(key)
			cur := v.Get()
			if cur == target {
				continue
			}
			anim := firstAnimation(r.Animation, cfg.Animation, desc.Animation)
			reqs = append(reqs, a.request(&r.RuleBase, key, InterpolationConfig{
				OutputRange: []float64{cur, target},
				Extrapolate: desc.Extrapolate,
			}, anim))
			out.published = append(out.published, Mirror{Source: label, Key: key, From: cur, To: target})
		}

	case *InterpolationRule:
		if exit {
			for _, ip := range r.Interpolations {
				out.Cancels = append(out.Cancels, ip.Key)
			}
			return nil
		}
		reqs = a.interpolations(cfg, &r.RuleBase, r.Interpolations, nil)

	case *ValueRule:
		if exit {
			for _, l := range r.Links {
				out.Unlinks = append(out.Unlinks, l.Key)
			}
			return nil
		}
		for _, l := range r.Links {
			if a.Registry == nil {
				return configErrorf(label, r.State, "value link %q needs a registry", l.Key)
			}
			src, ok := a.Registry.Lookup(l.Value)
			if !ok {
				return configErrorf(label, r.State, "could not find value %q in element %q",
					l.Value.ValueName, l.Value.OwnerLabel)
			}
			out.Links = append(out.Links, ValueLink{Key: l.Key, Source: src, Config: l.InterpolationConfig})
		}
		return nil

	case *FactoryRule:
		res := r.Factory(FactoryContext{
			ScreenSize: a.screen(),
			Metrics:    a.Item.Metrics(),
			State:      r.State,
			Phase:      act.Phase,
		})
		for _, ip := range res.Interpolations {
			if err := ip.Validate(); err != nil {
				return configErrorf(label, r.State, "factory interpolation %q: %v", ip.Key, err)
			}
		}
		reqs = a.interpolations(cfg, &r.RuleBase, res.Interpolations, res.Animation)

	case *SharedRule:
		out.Subscriptions = append(out.Subscriptions, Subscription{Rule: r, Subscribe: act.Phase == PhaseEnter})
		return nil
	}

	wrapCallbacks(act.Rule.base(), reqs)
	out.Requests = append(out.Requests, reqs...)
	return nil
}

func (a *Activator) interpolations(cfg *Configuration, b *RuleBase, ips []Interpolation, factory Animation) []*Request {
	reqs := make([]*Request, 0, len(ips))
	for _, ip := range ips {
		desc, _ := Property(ip.Key)
		anim := firstAnimation(ip.Animation, factory, b.Animation, cfg.Animation, desc.Animation)
		reqs = append(reqs, a.request(b, ip.Key, ip.InterpolationConfig, anim))
	}
	return reqs
}

func (a *Activator) request(b *RuleBase, key string, cfg InterpolationConfig, anim Animation) *Request {
	r := NewRequest(a.Item.ID(), key, a.Item.Value(key), cfg, anim)
	r.Loop, r.Flip, r.Yoyo = b.Loop, b.Flip, b.Yoyo
	return r
}

// mirrors turns style changes published to this element by shared rules
// into requests animated with each rule's own animation.
func (a *Activator) mirrors(cfg *Configuration, out *Activated) {
	queued := a.Registry.Mirrors(a.Item.Label())
	if len(queued) == 0 {
		return
	}
	out.mirrored = len(queued)
	// Later mirrors of the same key win.
	latest := make(map[string]Mirror, len(queued))
	var keys []string
	for _, m := range queued {
		if _, ok := latest[m.Key]; !ok {
			keys = append(keys, m.Key)
		}
		latest[m.Key] = m
	}

	byRule := make(map[*SharedRule][]*Request)
	var order []*SharedRule
	for _, key := range keys {
		m := latest[key]
		desc, _ := Property(key)
		cur := a.Item.Value(key).Get()
		if cur == m.To {
			continue
		}
		anim := firstAnimation(m.Rule.Animation, cfg.Animation, desc.Animation)
		req := a.request(&RuleBase{}, key, InterpolationConfig{
			OutputRange: []float64{cur, m.To},
			Extrapolate: desc.Extrapolate,
		}, anim)
		if _, ok := byRule[m.Rule]; !ok {
			order = append(order, m.Rule)
		}
		byRule[m.Rule] = append(byRule[m.Rule], req)
		out.Requests = append(out.Requests, req)
	}
	for _, rule := range order {
		wrapCallbacks(&rule.RuleBase, byRule[rule])
	}
}

func (a *Activator) screen() Size {
	if a.Screen == (Size{}) {
		return DefaultViewport
	}
	return a.Screen
}

// wrapCallbacks shares the rule's callbacks between its requests: OnBegin
// fires on the first begin, OnEnd after the last end.
func wrapCallbacks(b *RuleBase, reqs []*Request) {
	if len(reqs) == 0 {
		return
	}
	if b.OnBegin != nil {
		begun := false
		onBegin := func() {
			if begun {
				return
			}
			begun = true
			b.OnBegin()
		}
		for _, r := range reqs {
			r.OnBegin = onBegin
		}
	}
	if b.OnEnd != nil {
		remaining := len(reqs)
		onEnd := func() {
			remaining--
			if remaining == 0 {
				b.OnEnd()
			}
		}
		for _, r := range reqs {
			r.OnEnd = onEnd
		}
	}
}
