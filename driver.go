package fluid

import "time"

// Driver is the progress source scheduled animations sample every tick.
// Internal drivers are created per batch and advanced by Runner.Tick;
// external drivers are positioned by the host, e.g. from a gesture.
type Driver struct {
	position time.Duration
	duration time.Duration
	running  bool
	external bool
}

func newDriver(d time.Duration) *Driver {
	return &Driver{duration: d}
}

// NewExternalDriver returns a driver positioned only through SetProgress or
// SetPosition.
func NewExternalDriver() *Driver {
	return &Driver{external: true, running: true}
}

// Position returns the time elapsed on the driver.
func (d *Driver) Position() time.Duration { return d.position }

// Duration returns the span the driver covers.
func (d *Driver) Duration() time.Duration { return d.duration }

// Running reports whether the driver is advancing.
func (d *Driver) Running() bool { return d.running }

// Progress returns position/duration in 0..1.
func (d *Driver) Progress() float64 {
	if d.duration <= 0 {
		if d.position > 0 || !d.running {
			return 1
		}
		return 0
	}
	return clamp01(float64(d.position) / float64(d.duration))
}

// SetProgress moves the driver to p (clamped to 0..1) of its duration.
func (d *Driver) SetProgress(p float64) {
	d.position = time.Duration(clamp01(p) * float64(d.duration))
}

// SetPosition moves the driver to pos (clamped to its duration).
func (d *Driver) SetPosition(pos time.Duration) {
	d.position = min(max(pos, 0), d.duration)
}

func (d *Driver) start() { d.running = true }

func (d *Driver) advance(dt time.Duration) {
	if !d.running || d.external {
		return
	}
	d.position = min(d.position+dt, d.duration)
}

func (d *Driver) finished() bool {
	return !d.external && d.position >= d.duration
}

// DriverContext shares one external driver between every commit made while
// it is active. Durations requested on it only grow.
type DriverContext struct {
	driver *Driver
	active bool
}

// NewDriverContext returns an active context around a fresh external driver.
func NewDriverContext() *DriverContext {
	return &DriverContext{driver: NewExternalDriver(), active: true}
}

// Active reports whether commits should schedule against the shared driver.
func (c *DriverContext) Active() bool { return c != nil && c.active }

// SetActive toggles the context. Deactivation unregisters every animation
// scheduled against it on the runner's next tick.
func (c *DriverContext) SetActive(active bool) { c.active = active }

// Driver returns the shared driver.
func (c *DriverContext) Driver() *Driver { return c.driver }

// RequestDuration extends the shared driver to cover d. A shorter request
// never shrinks it.
func (c *DriverContext) RequestDuration(d time.Duration) {
	if d > c.driver.duration {
		c.driver.duration = d
	}
}

// SplitProgress converts a navigation-style progress value into the progress
// of one of the two screens involved. forward tells whether the navigation
// pushes (progress runs 0..1) or pops (1..0). The leaving screen animates in
// the first half of the transition and the focused screen in the second.
func SplitProgress(progress float64, forward, focused bool) float64 {
	p := clamp01(progress)
	if !forward {
		p = 1 - p
	}
	if focused {
		return clamp01(p*2 - 1)
	}
	return clamp01(p * 2)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
