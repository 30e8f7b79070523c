package fluid

import "context"

// injectedStates is one queued state update.
type injectedStates struct {
	label  string
	name   string
	active bool
	states []State
	full   bool
}

// InjectStates queues a replacement of the item's states. The update is
// applied on the next Update, one queued update per frame.
func (s *Stage) InjectStates(label string, states []State) {
	s.injectQueue = append(s.injectQueue, injectedStates{label: label, states: states, full: true})
}

// InjectState queues the activation or deactivation of one state.
func (s *Stage) InjectState(label, name string, active bool) {
	s.injectQueue = append(s.injectQueue, injectedStates{label: label, name: name, active: active})
}

// InjectToggle queues a state activation followed by its deactivation.
// Consumes two frames.
func (s *Stage) InjectToggle(label, name string) {
	s.InjectState(label, name, true)
	s.InjectState(label, name, false)
}

// processInjected pops one update from the inject queue and applies it.
func (s *Stage) processInjected(ctx context.Context) error {
	if len(s.injectQueue) == 0 {
		return nil
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]

	if evt.full {
		return s.SetStates(ctx, evt.label, evt.states)
	}
	return s.SetState(ctx, evt.label, evt.name, evt.active)
}
