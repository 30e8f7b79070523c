package fluid

import (
	"time"

	"github.com/google/uuid"
	"github.com/tanema/gween"
)

// scheduled is one request placed on a driver at {offset, duration}.
type scheduled struct {
	req      *Request
	owner    Element
	driver   *Driver
	dc       *DriverContext
	batch    *batch
	offset   time.Duration
	duration time.Duration
	tween    *gween.Tween

	began     bool
	cancelled bool
}

// step writes the value for the driver's current position. Before its
// window the start value is held; the animation is done once the driver
// passed its end.
func (s *scheduled) step() (began, done bool) {
	if !s.driver.running {
		return false, false
	}
	local := s.driver.Position() - s.offset
	if local < 0 {
		s.write(s.progressAt(0))
		return false, false
	}
	if !s.began {
		s.began = true
		began = true
	}
	done = local >= s.duration
	if done {
		local = s.duration
	}
	s.write(s.progressAt(local))
	return began, done
}

func (s *scheduled) progressAt(local time.Duration) float64 {
	if s.duration <= 0 {
		return 1
	}
	v, _ := s.tween.Set(seconds(local))
	return float64(v)
}

func (s *scheduled) write(p float64) {
	if s.req.Target != nil {
		s.req.Target.Set(Interpolate(p, s.req.Interpolation))
	}
}

func (s *scheduled) event(t EventType) AnimationEvent {
	return AnimationEvent{
		Type:      t,
		BatchID:   s.batch.id,
		RequestID: s.req.ID,
		ItemID:    s.req.ItemID,
		Key:       s.req.Key,
		Offset:    s.offset,
		Duration:  s.duration,
	}
}

// schedule finishes resolution of tree and registers its requests.
func (r *Runner) schedule(tree *animationTree, dc *DriverContext, reqs []*Request, deferUntilIdle bool) {
	id := uuid.New()
	tl := tree.finish(r.viewport)
	if tl == nil || tl.Duration <= 0 {
		r.skip(id, reqs, 0)
		return
	}
	r.debugDumpTimeline(tl)

	b := newBatch(id, tree.element, dc)
	var d *Driver
	if dc.Active() {
		d = dc.Driver()
		dc.RequestDuration(tl.Duration)
	} else {
		dc = nil
		d = newDriver(tl.Duration)
		r.drivers = append(r.drivers, d)
	}

	scheduledCount := 0
	for _, req := range reqs {
		n := tl.Node(req.ID)
		if n == nil {
			r.skipRequest(req, true)
			continue
		}
		s := &scheduled{
			req:      req,
			owner:    n.element,
			driver:   d,
			dc:       dc,
			batch:    b,
			offset:   n.Offset,
			duration: n.Duration,
			tween:    gween.New(0, 1, seconds(n.Duration), req.timing.Easing),
		}
		b.join(req)
		r.register(s)
		scheduledCount++
	}

	r.logger.Debug("batch committed",
		"batch", id, "root", tree.element.Label(), "requests", scheduledCount, "duration", tl.Duration)
	r.emit(AnimationEvent{Type: EventBatchCommitted, BatchID: id, Duration: tl.Duration, Requests: scheduledCount})

	if d.external || d.running {
		return
	}
	if deferUntilIdle && !r.idle {
		r.idleQueue = append(r.idleQueue, d.start)
		return
	}
	d.start()
}

// skip resolves a batch with nothing to play: callbacks run on the next tick.
func (r *Runner) skip(id uuid.UUID, reqs []*Request, d time.Duration) {
	r.logger.Debug("batch skipped", "batch", id, "requests", len(reqs))
	r.emit(AnimationEvent{Type: EventBatchSkipped, BatchID: id, Duration: d, Requests: len(reqs)})
	for _, req := range reqs {
		r.skipRequest(req, true)
	}
}

// skipRequest queues the request's callbacks as no-ops for the next tick.
// With settle, the target jumps to the end value.
func (r *Runner) skipRequest(req *Request, settle bool) {
	r.callbacks = append(r.callbacks, func() {
		if settle && req.Target != nil {
			if _, busy := r.running[req.key()]; !busy {
				req.Target.Set(Interpolate(1, req.Interpolation))
			}
		}
		if req.OnBegin != nil {
			req.OnBegin()
		}
		if req.OnEnd != nil {
			req.OnEnd()
		}
	})
}

// register makes s the live animation of its property, cancelling the
// previous one and any value link on it.
func (r *Runner) register(s *scheduled) {
	k := s.req.key()
	prev := r.running[k]
	r.running[k] = s
	r.active = append(r.active, s)
	delete(r.links, k)
	if prev != nil && prev != s {
		r.cancelScheduled(prev)
	}
}

// cancelScheduled stops s without firing OnEnd.
func (r *Runner) cancelScheduled(s *scheduled) {
	if s.cancelled {
		return
	}
	s.cancelled = true
	r.release(s)
	r.logger.Debug("animation cancelled", "request", s.req.ID, "key", s.req.key())
	r.emit(s.event(EventAnimationCancelled))
	r.memberLeft(s)
}

// drop removes an animation whose owner died or whose driver context was
// deactivated. The caller removes it from its barrier once r.active is
// consistent again.
func (r *Runner) drop(s *scheduled) {
	s.cancelled = true
	r.release(s)
	r.emit(s.event(EventAnimationCancelled))
}

func (r *Runner) release(s *scheduled) {
	k := s.req.key()
	if r.running[k] == s {
		delete(r.running, k)
	}
}

// link drives a property from another element's value.
type link struct {
	owner  Element
	target *Value
	source *Value
	cfg    InterpolationConfig
}

// Link drives owner's key from source through cfg on every tick until
// Unlink, Cancel, a newer animation on the same property, or owner's death.
func (r *Runner) Link(owner Element, key string, source *Value, cfg InterpolationConfig) {
	r.debugCheckOwner("Link")
	k := propertyKey{item: owner.ID(), key: key}
	if s, ok := r.running[k]; ok {
		r.cancelScheduled(s)
	}
	r.links[k] = &link{owner: owner, target: owner.Value(key), source: source, cfg: cfg}
}

// Unlink removes the value link on (itemID, key).
func (r *Runner) Unlink(itemID uint32, key string) {
	delete(r.links, propertyKey{item: itemID, key: key})
}

// Linked reports whether a value link drives (itemID, key).
func (r *Runner) Linked(itemID uint32, key string) bool {
	_, ok := r.links[propertyKey{item: itemID, key: key}]
	return ok
}

func (r *Runner) applyLinks() {
	for k, l := range r.links {
		if !l.owner.IsAlive() {
			delete(r.links, k)
			continue
		}
		l.target.Set(Interpolate(l.source.Get(), l.cfg))
	}
}
