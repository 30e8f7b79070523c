package fluid

import (
	"context"
	"encoding/json"
	"fmt"
)

// scriptStep represents a single action in a script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	State  string  `json:"state,omitempty"`
	Active *bool   `json:"active,omitempty"`
	States []State `json:"states,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

// script is the top-level JSON structure for a script.
type script struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences state changes, idle signals and value dumps across
// frames for automated runs. Attach to a Stage via SetScript.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON script and returns a ScriptRunner ready to be
// attached to a Stage via SetScript.
//
// Actions: "state" (label, state, active: default true), "states" (label,
// states), "toggle" (label, state), "wait" (frames), "idle", "dump".
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var sc script
	if err := json.Unmarshal(jsonData, &sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range sc.Steps {
		switch st.Action {
		case "state", "toggle":
			if st.Label == "" || st.State == "" {
				return nil, fmt.Errorf("parse script: step %d: %s needs label and state", i, st.Action)
			}
		case "states":
			if st.Label == "" {
				return nil, fmt.Errorf("parse script: step %d: states needs label", i)
			}
		case "wait", "idle", "dump":
		default:
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{steps: sc.Steps}, nil
}

// SetScript attaches a ScriptRunner to the stage. The runner's step method
// is called from Stage.Update before injected states are processed.
func (s *Stage) SetScript(runner *ScriptRunner) {
	s.script = runner
}

// Done reports whether all steps in the script have been executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the script by one frame. Called from Stage.Update.
func (r *ScriptRunner) step(ctx context.Context, s *Stage) error {
	if r.done {
		return nil
	}
	// Wait for pending injections to drain before advancing.
	if len(s.injectQueue) > 0 {
		return nil
	}
	if r.waitCount > 0 {
		r.waitCount--
		return nil
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return nil
	}

	st := r.steps[r.cursor]
	r.cursor++

	var err error
	switch st.Action {
	case "state":
		active := st.Active == nil || *st.Active
		s.InjectState(st.Label, st.State, active)
	case "states":
		s.InjectStates(st.Label, st.States)
	case "toggle":
		s.InjectToggle(st.Label, st.State)
	case "idle":
		s.runner.SignalIdle()
	case "dump":
		_, err = fmt.Fprintf(s.output, "frame %d\n", s.frame)
		if err == nil {
			err = s.DumpValues(s.output)
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
	return err
}
