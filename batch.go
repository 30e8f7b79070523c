package fluid

import "context"

// AnimationContext accumulates the requests of one render pass so they are
// committed as a single batch. A context opened inside an open parent
// forwards its registrations to the parent, so the outermost context commits
// the whole subtree together.
type AnimationContext struct {
	parent  *AnimationContext
	open    bool
	pending []*Request
	initial bool
}

// NewAnimationContext returns a context nested in parent (which may be nil).
func NewAnimationContext(parent *AnimationContext) *AnimationContext {
	return &AnimationContext{parent: parent, initial: true}
}

// Begin opens the context for a render pass. It stays closed while the
// parent is open, since registrations go to the parent then.
func (c *AnimationContext) Begin() {
	if c.parent != nil && c.parent.InContext() {
		return
	}
	c.open = true
}

// InContext reports whether this context or an ancestor is open.
func (c *AnimationContext) InContext() bool {
	if c.parent != nil && c.parent.InContext() {
		return true
	}
	return c.open
}

// Register queues req, replacing any pending request for the same property.
func (c *AnimationContext) Register(req *Request) {
	if c.parent != nil && c.parent.InContext() {
		c.parent.Register(req)
		return
	}
	k := req.key()
	for i, p := range c.pending {
		if p.key() == k {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.pending = append(c.pending, req)
}

// Pending returns the queued requests. The slice MUST NOT be mutated.
func (c *AnimationContext) Pending() []*Request {
	return c.pending
}

// Discard drops the queued requests and closes the context without
// committing. A discarded pass does not count as the context's first commit.
func (c *AnimationContext) Discard() {
	if c.parent != nil && c.parent.InContext() {
		return
	}
	c.pending = nil
	c.open = false
}

// Commit hands the queued requests to runner as one batch rooted at root
// and closes the context. The first commit of a context waits for the
// runner's idle signal. Nothing happens while a parent context is open.
func (c *AnimationContext) Commit(ctx context.Context, runner *Runner, root Element, dc *DriverContext) error {
	if c.parent != nil && c.parent.InContext() {
		return nil
	}
	defer func() { c.open = false }()
	if len(c.pending) == 0 {
		return nil
	}
	reqs := c.pending
	c.pending = nil
	deferUntilIdle := c.initial
	c.initial = false
	return runner.Commit(ctx, root, dc, reqs, deferUntilIdle)
}
