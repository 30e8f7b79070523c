package fluid

import (
	"math"
	"sync"
	"time"

	"github.com/tanema/gween/ease"
)

// Spring animates with a damped harmonic oscillator. Zero fields take the
// values of SpringDefault.
type Spring struct {
	Stiffness float64
	Damping   float64
	Mass      float64
	Delay     time.Duration
}

// Spring presets.
var (
	SpringDefault    = Spring{Stiffness: 170, Damping: 26, Mass: 1}
	SpringGentle     = Spring{Stiffness: 120, Damping: 14, Mass: 1}
	SpringWobbly     = Spring{Stiffness: 180, Damping: 12, Mass: 1}
	SpringWobblySlow = Spring{Stiffness: 80, Damping: 8, Mass: 1}
	SpringStiff      = Spring{Stiffness: 210, Damping: 20, Mass: 1}
	SpringSlow       = Spring{Stiffness: 280, Damping: 60, Mass: 1}
	SpringMolasses   = Spring{Stiffness: 280, Damping: 120, Mass: 1}
)

const (
	springStep          = time.Millisecond
	springMaxDuration   = 10 * time.Second
	springRestDelta     = 0.001
	springRestVelocity  = 0.001
	springCurveCapacity = 1024
)

type springKey struct {
	stiffness, damping, mass float64
}

type springCurve struct {
	duration time.Duration
	easing   ease.TweenFunc
}

var (
	springCacheMu sync.Mutex
	springCache   = map[springKey]springCurve{}
)

func (s Spring) resolve() Timing {
	key := springKey{s.Stiffness, s.Damping, s.Mass}
	if key.stiffness <= 0 {
		key.stiffness = SpringDefault.Stiffness
	}
	if key.damping <= 0 {
		key.damping = SpringDefault.Damping
	}
	if key.mass <= 0 {
		key.mass = SpringDefault.Mass
	}

	springCacheMu.Lock()
	curve, ok := springCache[key]
	if !ok {
		curve = simulateSpring(key)
		springCache[key] = curve
	}
	springCacheMu.Unlock()

	delay := s.Delay
	if delay < 0 {
		delay = 0
	}
	return Timing{Duration: curve.duration, Delay: delay, Easing: curve.easing}
}

// simulateSpring integrates the spring from 0 towards 1 with a fixed step
// until it comes to rest, recording the displacement at every step.
func simulateSpring(k springKey) springCurve {
	dt := springStep.Seconds()
	x, v := 0.0, 0.0
	samples := make([]float32, 1, springCurveCapacity)

	for elapsed := springStep; elapsed <= springMaxDuration; elapsed += springStep {
		a := (-k.stiffness*(x-1) - k.damping*v) / k.mass
		v += a * dt
		x += v * dt
		samples = append(samples, float32(x))
		if math.Abs(x-1) < springRestDelta && math.Abs(v) < springRestVelocity {
			break
		}
	}
	samples[len(samples)-1] = 1

	return springCurve{
		duration: time.Duration(len(samples)-1) * springStep,
		easing:   sampledEasing(samples),
	}
}

// sampledEasing wraps a curve sampled at even intervals over [0, 1] as an
// easing function, linearly interpolating between samples. Values may
// overshoot 1 for underdamped springs.
func sampledEasing(samples []float32) ease.TweenFunc {
	last := len(samples) - 1
	return func(t, b, c, d float32) float32 {
		if d <= 0 || last == 0 {
			return b + c*samples[last]
		}
		p := t / d
		if p <= 0 {
			return b + c*samples[0]
		}
		if p >= 1 {
			return b + c*samples[last]
		}
		pos := p * float32(last)
		i := int(pos)
		frac := pos - float32(i)
		return b + c*(samples[i]+(samples[i+1]-samples[i])*frac)
	}
}
