package fluid

// Built-in state names reported by hosts when elements mount and unmount.
const (
	StateMounted   = "mounted"
	StateUnmounted = "unmounted"
)

// State is one named state entry reported by the host for an element.
// Value is an optional ordering/payload value; a change of Value on an
// active state is reported as a change.
type State struct {
	Name   string
	Active bool
	Value  float64
}

// StateChanges is the diff between two state reports. The three sets are
// disjoint by name.
type StateChanges struct {
	Added   []State
	Changed []State
	Removed []State
}

// Empty reports whether the diff carries no changes.
func (c StateChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

func containsState(states []State, name string) bool {
	for _, s := range states {
		if s.Name == name {
			return true
		}
	}
	return false
}

// DiffStates compares two state reports. Inactive entries count as absent.
func DiffStates(prev, next []State) StateChanges {
	before := make(map[string]State, len(prev))
	for _, s := range prev {
		if s.Active {
			before[s.Name] = s
		}
	}
	after := make(map[string]bool, len(next))

	var c StateChanges
	for _, s := range next {
		if !s.Active || after[s.Name] {
			continue
		}
		after[s.Name] = true
		old, ok := before[s.Name]
		switch {
		case !ok:
			c.Added = append(c.Added, s)
		case old.Value != s.Value:
			c.Changed = append(c.Changed, s)
		}
	}
	for _, s := range prev {
		if s.Active && !after[s.Name] && !containsState(c.Removed, s.Name) {
			c.Removed = append(c.Removed, s)
		}
	}
	return c
}
