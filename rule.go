package fluid

// Rule is one declarative animation rule keyed by a state name. The set of
// rule shapes is closed: *StyleRule, *InterpolationRule, *ValueRule,
// *FactoryRule and *SharedRule. Only pointers implement Rule, so a rule's
// identity is its address.
type Rule interface {
	StateName() string
	base() *RuleBase
}

// RuleBase carries the fields shared by every rule shape.
type RuleBase struct {
	State     string
	Animation Animation

	// Repeat counts. Infinite repeats forever; only allowed on When rules.
	Loop, Flip, Yoyo int

	// OnBegin fires once when the first animation of the rule starts, OnEnd
	// once after the last one ended.
	OnBegin func()
	OnEnd   func()
}

// StateName returns the state the rule is keyed by.
func (b *RuleBase) StateName() string { return b.State }

func (b *RuleBase) base() *RuleBase { return b }

// StyleRule applies a set of property values while its state is active.
type StyleRule struct {
	RuleBase
	Style map[string]float64
}

// Interpolation is one explicit property animation.
type Interpolation struct {
	Key string
	InterpolationConfig
	Animation Animation
}

// InterpolationRule animates properties through explicit ranges.
type InterpolationRule struct {
	RuleBase
	Interpolations []Interpolation
}

// ValueRef names a live value exposed by another element.
type ValueRef struct {
	OwnerLabel string
	ValueName  string
}

// ValueInterpolation drives Key from another element's live value.
type ValueInterpolation struct {
	Key   string
	Value ValueRef
	InterpolationConfig
}

// ValueRule links properties to other elements' live values while its
// state is active.
type ValueRule struct {
	RuleBase
	Links []ValueInterpolation
}

// FactoryContext is passed to factory rules.
type FactoryContext struct {
	ScreenSize Size
	Metrics    Rect
	State      string
	Phase      Phase
}

// FactoryResult is what a factory rule produces.
type FactoryResult struct {
	Interpolations []Interpolation
	Animation      Animation
}

// FactoryRule computes its interpolations when it fires.
type FactoryRule struct {
	RuleBase
	Factory func(FactoryContext) FactoryResult
}

// SharedRule mirrors style changes published by the element labelled
// FromLabel onto the owning element, with the rule's own animation. Only
// valid in OnEnter and OnExit.
type SharedRule struct {
	RuleBase
	FromLabel string
}
