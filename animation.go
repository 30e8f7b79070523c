package fluid

import (
	"time"

	"github.com/tanema/gween/ease"
)

// Animation describes how a property moves from one value to another. The
// set of shapes is closed: Timing and Spring. Springs are converted to an
// equivalent Timing before scheduling, so timelines only reason about
// durations.
type Animation interface {
	resolve() Timing
}

// Timing animates over a fixed duration with an easing curve. Duration may
// be one of the sentinels AsGroup or AsContext.
type Timing struct {
	Duration time.Duration
	Delay    time.Duration
	Easing   ease.TweenFunc
}

func (t Timing) resolve() Timing {
	if t.Easing == nil {
		t.Easing = ease.Linear
	}
	if t.Duration < 0 && t.Duration != AsGroup && t.Duration != AsContext {
		t.Duration = 0
	}
	if t.Delay < 0 {
		t.Delay = 0
	}
	return t
}

// TimingDefault is used when neither the rule, the element nor the property
// names an animation.
var TimingDefault = Timing{Duration: DefaultDuration, Easing: ease.InOutCubic}

// Timing presets.
var (
	TimingFast = Timing{Duration: 150 * time.Millisecond, Easing: ease.OutCubic}
	TimingSlow = Timing{Duration: 750 * time.Millisecond, Easing: ease.InOutCubic}
)

// ResolveAnimation converts any Animation to the Timing that will actually
// be scheduled. A nil animation resolves to TimingDefault.
func ResolveAnimation(a Animation) Timing {
	if a == nil {
		return TimingDefault.resolve()
	}
	return a.resolve()
}

// firstAnimation returns the first non-nil animation in order of precedence.
func firstAnimation(candidates ...Animation) Animation {
	for _, a := range candidates {
		if a != nil {
			return a
		}
	}
	return nil
}

func seconds(d time.Duration) float32 {
	return float32(d.Seconds())
}
