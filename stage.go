package fluid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// Stage is the top-level object that owns an item tree, its runner, the
// value registry and the current states of every item. It is the host side
// of the engine: it diffs states, resolves activations, batches the
// resulting requests and ticks the runner.
type Stage struct {
	root     *Item
	runner   *Runner
	registry *Registry
	actx     *AnimationContext
	dc       *DriverContext

	states     map[string][]State
	activators map[*Item]*Activator

	// Resolved but not yet applied changes of the running Batch.
	staged       []stagedChange
	stagedStates map[string][]State

	injectQueue []injectedStates
	script      *ScriptRunner
	output      io.Writer
	frame       int
	debug       bool
	batching    bool
}

// NewStage creates a stage around root. opts configure the runner.
func NewStage(root *Item, opts ...Option) *Stage {
	return &Stage{
		root:       root,
		runner:     NewRunner(opts...),
		registry:   NewRegistry(),
		actx:       NewAnimationContext(nil),
		states:     make(map[string][]State),
		activators: make(map[*Item]*Activator),
		output:     io.Discard,
	}
}

// Root returns the stage's root item.
func (s *Stage) Root() *Item { return s.root }

// Runner returns the stage's runner.
func (s *Stage) Runner() *Runner { return s.runner }

// Registry returns the stage's value registry.
func (s *Stage) Registry() *Registry { return s.registry }

// Frame returns the number of Update calls so far.
func (s *Stage) Frame() int { return s.frame }

// SetOutput sets where script dump steps write. Defaults to io.Discard.
func (s *Stage) SetOutput(w io.Writer) { s.output = w }

// SetDriverContext makes later commits share dc's driver while it is active.
func (s *Stage) SetDriverContext(dc *DriverContext) { s.dc = dc }

// SetDebugMode enables or disables debug mode on the stage's items and
// runner. Debug mode binds the runner to the calling goroutine.
func (s *Stage) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
	s.runner.SetDebugMode(enabled)
}

// Find returns the item with the label, or nil.
func (s *Stage) Find(label string) *Item {
	return s.root.Find(label)
}

// Validate checks the configuration of every item.
func (s *Stage) Validate() error {
	var errs []error
	s.root.Walk(func(it *Item) {
		errs = append(errs, it.Config.Validate(it.label))
	})
	return errors.Join(errs...)
}

// States returns the current states of the item with the label. Changes
// made inside a running Batch are included.
func (s *Stage) States(label string) []State {
	if st, ok := s.stagedStates[label]; ok {
		return st
	}
	return s.states[label]
}

// Mount reports the mounted state on every item in one batch. The batch is
// the context's first, so playback waits for SignalIdle.
func (s *Stage) Mount(ctx context.Context) error {
	return s.Batch(ctx, func() error {
		var errs []error
		s.root.Walk(func(it *Item) {
			next := withState(s.States(it.label), State{Name: StateMounted, Active: true})
			errs = append(errs, s.apply(it, next))
		})
		return errors.Join(errs...)
	})
}

// Batch runs fn and commits every animation produced by the state changes
// it makes as a single timeline. Nested calls join the outer batch. Changes
// are resolved while fn runs and applied only once it returned nil, so a
// failed batch leaves states, runner and registry untouched.
func (s *Stage) Batch(ctx context.Context, fn func() error) error {
	if s.batching {
		return fn()
	}
	s.batching = true
	s.actx.Begin()
	err := fn()
	s.batching = false
	staged := s.staged
	s.staged, s.stagedStates = nil, nil
	if err != nil {
		s.actx.Discard()
		return err
	}
	for _, c := range staged {
		s.states[c.item.label] = c.states
		if err := c.activator.Apply(c.act, s.actx); err != nil {
			s.actx.Discard()
			return err
		}
	}
	return s.actx.Commit(ctx, s.runner, s.root, s.dc)
}

// SetStates replaces the states of the item with the label and commits the
// resulting animations, or adds them to the running Batch.
func (s *Stage) SetStates(ctx context.Context, label string, states []State) error {
	it := s.Find(label)
	if it == nil {
		return fmt.Errorf("fluid: no item labelled %q", label)
	}
	return s.Batch(ctx, func() error {
		return s.apply(it, states)
	})
}

// SetState activates or deactivates one state of the item with the label.
func (s *Stage) SetState(ctx context.Context, label, name string, active bool) error {
	return s.SetStates(ctx, label, withState(s.States(label), State{Name: name, Active: active}))
}

// stagedChange is a resolved state change waiting for its Batch to end.
type stagedChange struct {
	item      *Item
	activator *Activator
	act       *Activated
	states    []State
}

// apply resolves the change from the item's current states to next and
// stages it on the running Batch.
func (s *Stage) apply(it *Item, next []State) error {
	changes := DiffStates(s.States(it.label), next)
	a := s.activator(it)
	act, err := a.Resolve(next, changes)
	if err != nil {
		return err
	}
	if s.stagedStates == nil {
		s.stagedStates = make(map[string][]State)
	}
	s.stagedStates[it.label] = next
	s.staged = append(s.staged, stagedChange{item: it, activator: a, act: act, states: next})
	return nil
}

func (s *Stage) activator(it *Item) *Activator {
	a, ok := s.activators[it]
	if !ok {
		a = &Activator{Item: it, Registry: s.registry, Runner: s.runner, Screen: s.runner.Viewport()}
		s.activators[it] = a
	}
	return a
}

// withState returns states with st replacing the entry of the same name.
func withState(states []State, st State) []State {
	out := slices.Clone(states)
	for i := range out {
		if out[i].Name == st.Name {
			out[i] = st
			return out
		}
	}
	return append(out, st)
}

// Update runs one frame: the attached script advances, one injected state
// update is applied, items with mirrored changes re-resolve, and the runner
// ticks by dt.
func (s *Stage) Update(ctx context.Context, dt time.Duration) error {
	s.frame++
	var errs []error
	if s.script != nil {
		errs = append(errs, s.script.step(ctx, s))
	}
	errs = append(errs, s.processInjected(ctx))
	errs = append(errs, s.processMirrors(ctx))
	s.runner.Tick(dt)
	return errors.Join(errs...)
}

// processMirrors re-resolves every subscriber with queued shared changes.
func (s *Stage) processMirrors(ctx context.Context) error {
	labels := s.registry.PendingMirrors()
	if len(labels) == 0 {
		return nil
	}
	return s.Batch(ctx, func() error {
		for _, label := range labels {
			it := s.Find(label)
			if it == nil {
				s.registry.TakeMirrors(label)
				continue
			}
			if err := s.apply(it, s.States(label)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DumpValues writes the current property values of every item, one line
// per item in pre-order.
func (s *Stage) DumpValues(w io.Writer) error {
	var b strings.Builder
	s.root.Walk(func(it *Item) {
		keys := make([]string, 0, len(it.values))
		for k := range it.values {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString(it.label)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%.3f", k, it.values[k].Get())
		}
		b.WriteByte('\n')
	})
	_, err := io.WriteString(w, b.String())
	return err
}

// Close tears down the runner.
func (s *Stage) Close() {
	s.runner.Close()
}
