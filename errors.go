package fluid

import (
	"errors"
	"fmt"
)

// ErrConfig matches every configuration error via errors.Is.
var ErrConfig = errors.New("fluid: configuration error")

// ConfigError reports a misconfigured element. Configuration errors are
// returned from the call that triggered them and are meant to surface during
// development, not to be recovered from at runtime.
type ConfigError struct {
	Label  string
	State  string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Label != "" && e.State != "":
		return fmt.Sprintf("fluid: %s (element %q, state %q)", e.Reason, e.Label, e.State)
	case e.Label != "":
		return fmt.Sprintf("fluid: %s (element %q)", e.Reason, e.Label)
	default:
		return "fluid: " + e.Reason
	}
}

// Is makes errors.Is(err, ErrConfig) true for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(label, state, format string, args ...any) error {
	return &ConfigError{Label: label, State: state, Reason: fmt.Sprintf(format, args...)}
}
