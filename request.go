package fluid

import (
	"strconv"
	"sync/atomic"
)

// requestIDCounter is process-wide so repeat clones never reuse an id.
var requestIDCounter atomic.Int64

func nextRequestID() int64 {
	return requestIDCounter.Add(1)
}

// Request is one animation of one property of one element. Requests are
// created by activators (or by hand), accumulated in an AnimationContext and
// consumed once by Runner.Commit.
type Request struct {
	ID     int64
	ItemID uint32
	Key    string

	Interpolation InterpolationConfig
	Animation     Animation

	// Repeat counts. Loop restarts, Flip plays back reversed, Yoyo plays back
	// reversed with the easing mirrored.
	Loop, Flip, Yoyo int

	OnBegin func()
	OnEnd   func()

	// Target receives the interpolated value every tick.
	Target *Value

	timing     Timing
	normalized bool
}

// NewRequest returns a request with a fresh id.
func NewRequest(itemID uint32, key string, target *Value, cfg InterpolationConfig, a Animation) *Request {
	return &Request{
		ID:            nextRequestID(),
		ItemID:        itemID,
		Key:           key,
		Interpolation: cfg,
		Animation:     a,
		Target:        target,
	}
}

// Timing returns the normalized timing; springs are already converted.
func (r *Request) Timing() Timing {
	r.normalize()
	return r.timing
}

func (r *Request) normalize() {
	if r.normalized {
		return
	}
	if r.ID == 0 {
		r.ID = nextRequestID()
	}
	r.timing = ResolveAnimation(r.Animation)
	r.normalized = true
}

func (r *Request) key() propertyKey {
	return propertyKey{item: r.ItemID, key: r.Key}
}

func (r *Request) repeats() bool {
	return r.Loop != 0 || r.Flip != 0 || r.Yoyo != 0
}

// repeat returns the next iteration of r, or nil when r does not repeat.
// Loop takes precedence over Flip, Flip over Yoyo. The clone carries OnEnd
// (so it fires after the final iteration) but not OnBegin.
func (r *Request) repeat() *Request {
	if !r.repeats() {
		return nil
	}
	r.normalize()
	c := *r
	c.ID = nextRequestID()
	c.OnBegin = nil
	dec := func(n int) int {
		if n == Infinite {
			return n
		}
		return n - 1
	}
	switch {
	case r.Loop != 0:
		c.Loop = dec(r.Loop)
	case r.Flip != 0:
		c.Flip = dec(r.Flip)
		c.Interpolation = r.Interpolation.Reversed()
	default:
		c.Yoyo = dec(r.Yoyo)
		c.Interpolation = r.Interpolation.Reversed()
		c.timing.Easing = ReverseEasing(r.timing.Easing)
	}
	return &c
}

// propertyKey identifies one animated property: at most one live animation
// exists per key.
type propertyKey struct {
	item uint32
	key  string
}

func (k propertyKey) String() string {
	return strconv.FormatUint(uint64(k.item), 10) + ":" + k.key
}
