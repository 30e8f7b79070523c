package fluid

import "fmt"

// Extrapolation selects what happens when the input falls outside the input range.
type Extrapolation uint8

const (
	ExtrapolateUnset    Extrapolation = iota // fall back to the wider setting, then Extend
	ExtrapolateExtend                        // continue the edge segment
	ExtrapolateClamp                         // hold the edge output
	ExtrapolateIdentity                      // return the input unchanged
)

func (e Extrapolation) String() string {
	switch e {
	case ExtrapolateExtend:
		return "extend"
	case ExtrapolateClamp:
		return "clamp"
	case ExtrapolateIdentity:
		return "identity"
	default:
		return "unset"
	}
}

// InterpolationConfig maps a progress value through an input range onto an
// output range. A nil InputRange spreads the outputs evenly over 0..1.
type InterpolationConfig struct {
	InputRange       []float64
	OutputRange      []float64
	Extrapolate      Extrapolation
	ExtrapolateLeft  Extrapolation
	ExtrapolateRight Extrapolation
}

// Validate reports range shapes that cannot be interpolated.
func (c InterpolationConfig) Validate() error {
	if len(c.OutputRange) == 0 {
		return fmt.Errorf("empty output range")
	}
	if c.InputRange == nil {
		return nil
	}
	if len(c.InputRange) != len(c.OutputRange) {
		return fmt.Errorf("input range has %d entries, output range has %d",
			len(c.InputRange), len(c.OutputRange))
	}
	for i := 1; i < len(c.InputRange); i++ {
		if c.InputRange[i] < c.InputRange[i-1] {
			return fmt.Errorf("input range is not monotonically non-decreasing at index %d", i)
		}
	}
	return nil
}

// Reversed returns a copy with the output range reversed.
func (c InterpolationConfig) Reversed() InterpolationConfig {
	out := make([]float64, len(c.OutputRange))
	for i, v := range c.OutputRange {
		out[len(out)-1-i] = v
	}
	c.OutputRange = out
	if c.InputRange != nil {
		c.InputRange = append([]float64(nil), c.InputRange...)
	}
	return c
}

func (c InterpolationConfig) left() Extrapolation {
	if c.ExtrapolateLeft != ExtrapolateUnset {
		return c.ExtrapolateLeft
	}
	if c.Extrapolate != ExtrapolateUnset {
		return c.Extrapolate
	}
	return ExtrapolateExtend
}

func (c InterpolationConfig) right() Extrapolation {
	if c.ExtrapolateRight != ExtrapolateUnset {
		return c.ExtrapolateRight
	}
	if c.Extrapolate != ExtrapolateUnset {
		return c.Extrapolate
	}
	return ExtrapolateExtend
}

func (c InterpolationConfig) inputAt(i int) float64 {
	if c.InputRange != nil {
		return c.InputRange[i]
	}
	return float64(i) / float64(len(c.OutputRange)-1)
}

// Interpolate maps x through cfg.
func Interpolate(x float64, cfg InterpolationConfig) float64 {
	out := cfg.OutputRange
	switch len(out) {
	case 0:
		return x
	case 1:
		return out[0]
	}

	seg := 1
	for seg < len(out)-1 && x > cfg.inputAt(seg) {
		seg++
	}
	inMin, inMax := cfg.inputAt(seg-1), cfg.inputAt(seg)
	outMin, outMax := out[seg-1], out[seg]

	if x < inMin {
		switch cfg.left() {
		case ExtrapolateIdentity:
			return x
		case ExtrapolateClamp:
			x = inMin
		}
	}
	if x > inMax {
		switch cfg.right() {
		case ExtrapolateIdentity:
			return x
		case ExtrapolateClamp:
			x = inMax
		}
	}

	if inMin == inMax {
		if x <= inMin {
			return outMin
		}
		return outMax
	}
	t := (x - inMin) / (inMax - inMin)
	return outMin + t*(outMax-outMin)
}
