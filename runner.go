package fluid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunnerClosed is returned by Commit after Close.
var ErrRunnerClosed = errors.New("fluid: runner closed")

// Runner executes resolved timelines. It owns every live animation, value
// link, deferred callback and in-flight metrics resolution of one root.
// A Runner is single-threaded: every method except Settle and Close must be
// called from the goroutine that drives Tick.
type Runner struct {
	logger       *slog.Logger
	customLogger bool
	viewport     Size
	sink         EventSink

	debug bool
	owner int64

	running map[propertyKey]*scheduled
	active  []*scheduled
	links   map[propertyKey]*link
	drivers []*Driver

	callbacks []func()
	idle      bool
	idleQueue []func()

	mu       sync.Mutex
	mailbox  []func()
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
		r.customLogger = true
	}
}

// WithViewport sets the viewport used for relevance checks.
func WithViewport(s Size) Option {
	return func(r *Runner) { r.viewport = s }
}

// WithEventSink forwards lifecycle events to sink.
func WithEventSink(sink EventSink) Option {
	return func(r *Runner) { r.sink = sink }
}

// NewRunner returns an idle-less runner: commits that defer until idle wait
// for the first SignalIdle.
func NewRunner(opts ...Option) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		viewport: DefaultViewport,
		running:  make(map[propertyKey]*scheduled),
		links:    make(map[propertyKey]*link),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetViewport changes the viewport used by later commits.
func (r *Runner) SetViewport(s Size) { r.viewport = s }

// Viewport returns the viewport used for relevance checks.
func (r *Runner) Viewport() Size { return r.viewport }

// Commit resolves reqs against root and schedules the result. Nothing
// happens if root is dead or reqs is empty. When some element's metrics are
// pending, resolution continues on a goroutine and the result is scheduled
// on a later Tick (or Settle). With deferUntilIdle, playback starts at the
// next SignalIdle. dc, when active, shares its driver with the batch.
func (r *Runner) Commit(ctx context.Context, root Element, dc *DriverContext, reqs []*Request, deferUntilIdle bool) error {
	r.debugCheckOwner("Commit")
	if r.closed {
		return ErrRunnerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if root == nil || !root.IsAlive() || len(reqs) == 0 {
		return nil
	}
	for _, req := range reqs {
		req.normalize()
	}

	tree := buildTree(root, reqs)
	if !tree.pending() {
		r.schedule(tree, dc, reqs, deferUntilIdle)
		return nil
	}

	r.logger.Debug("waiting for metrics", "root", root.Label(), "pending", len(tree.waiters))
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(r.ctx, cancel)
		defer stop()

		err := tree.wait(wctx)
		r.post(func() {
			if err != nil {
				r.logger.Debug("metrics wait aborted", "root", root.Label(), "err", err)
				r.skip(uuid.New(), reqs, 0)
				return
			}
			r.schedule(tree, dc, reqs, deferUntilIdle)
		})
	}()
	return nil
}

// post queues fn for the runner's goroutine. Safe from any goroutine.
func (r *Runner) post(fn func()) {
	r.mu.Lock()
	r.mailbox = append(r.mailbox, fn)
	r.mu.Unlock()
}

func (r *Runner) drainMailbox() {
	r.mu.Lock()
	queued := r.mailbox
	r.mailbox = nil
	r.mu.Unlock()
	if r.closed {
		return
	}
	for _, fn := range queued {
		fn()
	}
}

// Settle waits for every in-flight metrics resolution and schedules its
// result. Used by hosts that cannot wait for the next Tick, and by tests.
func (r *Runner) Settle() {
	r.inflight.Wait()
	r.drainMailbox()
}

// SignalIdle reports that the host finished its first paint. Deferred
// playback starts now, and later deferred commits start immediately.
func (r *Runner) SignalIdle() {
	r.debugCheckOwner("SignalIdle")
	r.idle = true
	queued := r.idleQueue
	r.idleQueue = nil
	for _, fn := range queued {
		fn()
	}
}

// SignalBusy makes deferred commits wait for the next SignalIdle again.
func (r *Runner) SignalBusy() { r.idle = false }

// Idle reports whether the host signalled idle.
func (r *Runner) Idle() bool { return r.idle }

// Tick advances every internal driver by dt and updates the animated values.
// Callbacks queued by earlier commits run first; begin and end callbacks of
// this tick run last, after every value was written.
func (r *Runner) Tick(dt time.Duration) {
	r.debugCheckOwner("Tick")
	if r.closed {
		return
	}
	r.drainMailbox()
	r.runCallbacks()

	for _, d := range r.drivers {
		d.advance(dt)
	}

	var begun, ended, dropped []*scheduled
	live := r.active[:0]
	for _, s := range r.active {
		if s.cancelled {
			continue
		}
		if !s.owner.IsAlive() || (s.dc != nil && !s.dc.Active()) {
			r.drop(s)
			dropped = append(dropped, s)
			continue
		}
		began, done := s.step()
		if began {
			begun = append(begun, s)
		}
		if done {
			r.release(s)
			ended = append(ended, s)
			continue
		}
		live = append(live, s)
	}
	clear(r.active[len(live):])
	r.active = live

	// Barriers may re-commit here, which appends to r.active.
	for _, s := range dropped {
		r.memberLeft(s)
	}

	r.applyLinks()
	r.sweepDrivers()

	for _, s := range begun {
		r.emit(s.event(EventAnimationBegin))
		if s.req.OnBegin != nil {
			s.req.OnBegin()
		}
	}
	for _, s := range ended {
		r.emit(s.event(EventAnimationEnd))
		if s.req.OnEnd != nil {
			s.req.OnEnd()
		}
		r.memberDone(s)
	}
}

func (r *Runner) runCallbacks() {
	for len(r.callbacks) > 0 {
		queued := r.callbacks
		r.callbacks = nil
		for _, fn := range queued {
			fn()
		}
	}
}

func (r *Runner) sweepDrivers() {
	live := r.drivers[:0]
	for _, d := range r.drivers {
		if !d.finished() {
			live = append(live, d)
		}
	}
	clear(r.drivers[len(live):])
	r.drivers = live
}

// Active reports whether any animation or driver is still live.
func (r *Runner) Active() bool {
	if len(r.callbacks) > 0 {
		return true
	}
	for _, s := range r.active {
		if !s.cancelled {
			return true
		}
	}
	return false
}

// IsRunning reports whether a live animation targets (itemID, key).
func (r *Runner) IsRunning(itemID uint32, key string) bool {
	_, ok := r.running[propertyKey{item: itemID, key: key}]
	return ok
}

// Cancel stops the animation and the value link targeting (itemID, key).
// A cancelled animation never fires OnEnd.
func (r *Runner) Cancel(itemID uint32, key string) {
	r.debugCheckOwner("Cancel")
	k := propertyKey{item: itemID, key: key}
	if s, ok := r.running[k]; ok {
		r.cancelScheduled(s)
	}
	delete(r.links, k)
}

// Close stops in-flight resolutions and drops every animation without
// firing callbacks. The runner cannot be used afterwards.
func (r *Runner) Close() {
	r.cancel()
	r.inflight.Wait()
	r.mu.Lock()
	r.mailbox = nil
	r.mu.Unlock()
	r.closed = true
	clear(r.running)
	clear(r.links)
	r.active = nil
	r.drivers = nil
	r.callbacks = nil
	r.idleQueue = nil
}

func (r *Runner) emit(e AnimationEvent) {
	if r.sink != nil {
		r.sink.EmitEvent(e)
	}
}
