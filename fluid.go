package fluid

import "time"

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// IntersectsVertically reports whether the vertical extent of r overlaps a
// viewport of the given height starting at y = 0. Horizontal extent is not
// considered, so elements sliding in from the side still count as visible.
func (r Rect) IntersectsVertically(viewport Size) bool {
	return r.Y+r.Height >= 0 && r.Y < viewport.Height
}

// Size is a width/height pair, used for screen and viewport dimensions.
type Size struct {
	Width, Height float64
}

// DefaultViewport is used by resolvers and runners that were not given one.
var DefaultViewport = Size{Width: 1280, Height: 720}

// DefaultStagger is the per-child increment used by staggered composition
// when the configuration does not name one.
const DefaultStagger = 100 * time.Millisecond

// DefaultDuration is the duration assumed for a timeline whose durations are
// all sentinels.
const DefaultDuration = 330 * time.Millisecond

// Sentinel durations. A node declared AsGroup takes the duration computed
// for its group; a node declared AsContext takes the total duration of the
// enclosing timeline.
const (
	AsGroup   time.Duration = -1001 * time.Millisecond
	AsContext time.Duration = -1002 * time.Millisecond
)

// isSentinel reports whether d is one of the sentinel durations (or any
// other unresolved negative duration).
func isSentinel(d time.Duration) bool {
	return d < 0
}

// Infinite as a Loop, Flip or Yoyo count repeats forever.
const Infinite = -1

// ChildAnimationType selects how a node composes the timelines of its children.
type ChildAnimationType uint8

const (
	Parallel   ChildAnimationType = iota // children start together
	Sequential                           // each child starts when the previous ends
	Staggered                            // children start at fixed increments
)

func (t ChildAnimationType) String() string {
	switch t {
	case Parallel:
		return "parallel"
	case Sequential:
		return "sequential"
	case Staggered:
		return "staggered"
	default:
		return "unknown"
	}
}

// Direction controls the order in which children are composed.
type Direction uint8

const (
	DirectionInherit Direction = iota // use the parent's direction (forward at the root)
	Forward                           // declaration order
	Backward                          // reverse declaration order
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "inherit"
	}
}

// Phase tells whether a rule fired because its state became active (enter)
// or inactive (exit).
type Phase uint8

const (
	PhaseEnter Phase = iota
	PhaseExit
)

func (p Phase) String() string {
	if p == PhaseExit {
		return "exit"
	}
	return "enter"
}
