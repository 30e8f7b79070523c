package fluid

import (
	"context"

	"github.com/google/uuid"
)

// batch tracks the repeat barrier of one commit: the clones of its
// repeating members are re-committed together once every repeating member
// finished.
type batch struct {
	id   uuid.UUID
	root Element
	dc   *DriverContext

	waiting  map[int64]bool
	clones   map[int64]*Request
	order    []int64
	repeated bool
}

func newBatch(id uuid.UUID, root Element, dc *DriverContext) *batch {
	return &batch{id: id, root: root, dc: dc}
}

// join adds req's next iteration to the barrier when req repeats.
func (b *batch) join(req *Request) {
	c := req.repeat()
	if c == nil {
		return
	}
	if b.clones == nil {
		b.waiting = make(map[int64]bool)
		b.clones = make(map[int64]*Request)
	}
	b.waiting[req.ID] = true
	b.clones[req.ID] = c
	b.order = append(b.order, req.ID)
	// The final iteration fires OnEnd.
	req.OnEnd = nil
}

// ready reports whether the barrier opened.
func (b *batch) ready() bool {
	return !b.repeated && len(b.clones) > 0 && len(b.waiting) == 0
}

// memberDone records a finished member and re-commits when it was the last.
func (r *Runner) memberDone(s *scheduled) {
	b := s.batch
	if !b.waiting[s.req.ID] {
		return
	}
	delete(b.waiting, s.req.ID)
	r.maybeRepeat(b)
}

// memberLeft removes a cancelled member, and its next iteration, from the
// barrier.
func (r *Runner) memberLeft(s *scheduled) {
	b := s.batch
	if !b.waiting[s.req.ID] {
		return
	}
	delete(b.waiting, s.req.ID)
	delete(b.clones, s.req.ID)
	r.maybeRepeat(b)
}

// maybeRepeat re-commits the batch's clones as a new batch. Clones whose
// property already has a live animation are skipped.
func (r *Runner) maybeRepeat(b *batch) {
	if !b.ready() {
		return
	}
	b.repeated = true
	if !b.root.IsAlive() {
		return
	}

	var reqs []*Request
	for _, id := range b.order {
		c, ok := b.clones[id]
		if !ok {
			continue
		}
		if _, busy := r.running[c.key()]; busy {
			r.logger.Debug("repeat skipped, property busy", "request", c.ID, "key", c.key())
			r.skipRequest(c, false)
			continue
		}
		reqs = append(reqs, c)
	}
	if len(reqs) == 0 {
		return
	}
	r.logger.Debug("batch repeated", "batch", b.id, "requests", len(reqs))
	r.emit(AnimationEvent{Type: EventBatchRepeated, BatchID: b.id, Requests: len(reqs)})
	if err := r.Commit(context.Background(), b.root, b.dc, reqs, false); err != nil {
		r.logger.Warn("repeat commit failed", "batch", b.id, "err", err)
	}
}
