package fluid

import (
	"errors"
	"time"
)

// StaggerFunc computes per-child stagger increments for a staggered node
// from its own metrics and its children's metrics. Entries missing from the
// result fall back to the node's scalar stagger.
type StaggerFunc func(parent Rect, children []Rect) []time.Duration

// ChildAnimation declares how an element composes its children's timelines.
type ChildAnimation struct {
	Type        ChildAnimationType
	Direction   Direction
	Stagger     time.Duration
	StaggerFunc StaggerFunc
}

// Configuration is the declarative animation setup of one element.
type Configuration struct {
	// Animation is the element's default animation for its rules.
	Animation Animation

	When    []Rule
	OnEnter []Rule
	OnExit  []Rule

	ChildAnimation ChildAnimation
}

var emptyConfiguration = &Configuration{}

// Validate reports every configuration error found in c. label is used in
// error messages only.
func (c *Configuration) Validate(label string) error {
	var errs []error
	for _, r := range c.When {
		if _, ok := r.(*SharedRule); ok {
			errs = append(errs, configErrorf(label, r.StateName(), "shared interpolations are only allowed in OnEnter/OnExit"))
		}
		errs = append(errs, validateRule(label, r)...)
	}
	for _, list := range [][]Rule{c.OnEnter, c.OnExit} {
		for _, r := range list {
			if err := checkTransientRepeat(label, r); err != nil {
				errs = append(errs, err)
			}
			errs = append(errs, validateRule(label, r)...)
		}
	}
	return errors.Join(errs...)
}

func validateRule(label string, r Rule) []error {
	if r == nil {
		return []error{configErrorf(label, "", "nil rule")}
	}
	var errs []error
	if r.StateName() == "" {
		errs = append(errs, configErrorf(label, "", "rule without state"))
	}
	b := r.base()
	for _, c := range []struct {
		name string
		n    int
	}{{"loop", b.Loop}, {"flip", b.Flip}, {"yoyo", b.Yoyo}} {
		if c.n < 0 && c.n != Infinite {
			errs = append(errs, configErrorf(label, b.State, "%s count %d is negative", c.name, c.n))
		}
	}
	switch r := r.(type) {
	case *InterpolationRule:
		for _, ip := range r.Interpolations {
			if err := ip.Validate(); err != nil {
				errs = append(errs, configErrorf(label, r.State, "interpolation %q: %v", ip.Key, err))
			}
		}
	case *ValueRule:
		for _, l := range r.Links {
			if err := l.Validate(); err != nil {
				errs = append(errs, configErrorf(label, r.State, "value link %q: %v", l.Key, err))
			}
		}
	case *FactoryRule:
		if r.Factory == nil {
			errs = append(errs, configErrorf(label, r.State, "factory rule without factory"))
		}
	}
	return errs
}

// checkTransientRepeat rejects repeats with no defined end on rules tied to
// a transient enter/exit transition.
func checkTransientRepeat(label string, r Rule) error {
	if r == nil {
		return nil
	}
	b := r.base()
	if b.Loop == Infinite || b.Flip == Infinite || b.Yoyo != 0 {
		return configErrorf(label, b.State, "infinite loops are not allowed on OnEnter/OnExit rules")
	}
	return nil
}
