package fluid

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// NoRequest marks a node that only groups its descendants.
const NoRequest int64 = -1

// AnimationNode is one node of the per-commit animation tree. Nodes mirror
// elements; an element owning several requests gets one synthetic leaf per
// request. Nodes are never reused across commits.
type AnimationNode struct {
	ID       uint32
	Label    string
	Parent   *AnimationNode
	Children []*AnimationNode
	Metrics  Rect

	ChildAnimation ChildAnimationType
	Direction      Direction
	Stagger        time.Duration
	StaggerFunc    StaggerFunc

	Duration        time.Duration
	Delay           time.Duration
	SubtreeDuration time.Duration
	Offset          time.Duration

	RequestID int64

	element   Element
	synthetic bool
	relevant  bool

	// slot is how far a staggered parent advances after this child.
	slot time.Duration
	// span is the composed duration of the children, or a sentinel.
	span time.Duration
}

// HasRequest reports whether the node carries an animation request.
func (n *AnimationNode) HasRequest() bool { return n.RequestID != NoRequest }

// animationTree is the working state of one resolution.
type animationTree struct {
	root    *AnimationNode
	arena   []AnimationNode
	byItem  map[uint32][]*Request
	nodes   map[int64]*AnimationNode
	waiters []MetricsWaiter
	element Element
}

func countElements(e Element) int {
	n := 1
	for _, c := range e.Children() {
		n += countElements(c)
	}
	return n
}

// buildTree mirrors root into animation nodes. Requests must be normalized.
func buildTree(root Element, reqs []*Request) *animationTree {
	t := &animationTree{
		arena:   make([]AnimationNode, 0, countElements(root)+len(reqs)),
		byItem:  make(map[uint32][]*Request, len(reqs)),
		nodes:   make(map[int64]*AnimationNode, len(reqs)),
		element: root,
	}
	for _, r := range reqs {
		t.byItem[r.ItemID] = append(t.byItem[r.ItemID], r)
	}
	t.root = t.build(root, nil, Forward)
	return t
}

func (t *animationTree) alloc() *AnimationNode {
	if len(t.arena) < cap(t.arena) {
		t.arena = t.arena[:len(t.arena)+1]
		return &t.arena[len(t.arena)-1]
	}
	return &AnimationNode{}
}

func (t *animationTree) build(e Element, parent *AnimationNode, inherited Direction) *AnimationNode {
	cfg := e.Configuration()
	if cfg == nil {
		cfg = emptyConfiguration
	}
	ca := cfg.ChildAnimation
	dir := ca.Direction
	if dir == DirectionInherit {
		dir = inherited
	}
	stagger := ca.Stagger
	if stagger <= 0 {
		stagger = DefaultStagger
	}

	n := t.alloc()
	*n = AnimationNode{
		ID:             e.ID(),
		Label:          e.Label(),
		Parent:         parent,
		Metrics:        e.Metrics(),
		ChildAnimation: ca.Type,
		Direction:      dir,
		Stagger:        stagger,
		StaggerFunc:    ca.StaggerFunc,
		Duration:       AsGroup,
		RequestID:      NoRequest,
		element:        e,
	}

	var leaves []*AnimationNode
	reqs := t.byItem[e.ID()]
	if len(reqs) == 1 {
		t.attach(n, reqs[0])
	} else {
		for _, r := range reqs {
			leaf := t.alloc()
			*leaf = AnimationNode{
				ID:             e.ID(),
				Label:          e.Label() + "." + r.Key,
				Parent:         n,
				Metrics:        n.Metrics,
				ChildAnimation: Parallel,
				Direction:      dir,
				Stagger:        stagger,
				element:        e,
				synthetic:      true,
			}
			t.attach(leaf, r)
			leaves = append(leaves, leaf)
		}
	}

	// Element children come first, then the element's own request leaves.
	for _, c := range e.Children() {
		if !c.IsAlive() {
			continue
		}
		n.Children = append(n.Children, t.build(c, n, dir))
	}
	n.Children = append(n.Children, leaves...)
	if dir == Backward {
		slices.Reverse(n.Children)
	}

	if w, ok := e.(MetricsWaiter); ok && w.MetricsPending() {
		t.waiters = append(t.waiters, w)
	}
	return n
}

func (t *animationTree) attach(n *AnimationNode, r *Request) {
	n.RequestID = r.ID
	n.Duration = r.timing.Duration
	n.Delay = r.timing.Delay
	t.nodes[r.ID] = n
}

// pending reports whether metrics must be awaited before finishing.
func (t *animationTree) pending() bool { return len(t.waiters) > 0 }

// wait resolves every pending metrics wait concurrently.
func (t *animationTree) wait(ctx context.Context) error {
	if len(t.waiters) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range t.waiters {
		g.Go(func() error { return w.WaitForMetrics(gctx) })
	}
	return g.Wait()
}

// finish runs every synchronous resolution step. It returns nil when the
// root died or nothing relevant is left.
func (t *animationTree) finish(viewport Size) *Timeline {
	if !t.element.IsAlive() {
		return nil
	}
	refreshMetrics(t.root)
	resolveStagger(t.root)
	markRelevant(t.root, viewport)
	if !prune(t.root) {
		return nil
	}

	computeSubtree(t.root)
	resolveGroupDurations(t.root, DefaultDuration)
	computeSubtree(t.root)
	total := t.root.SubtreeDuration
	if isSentinel(total) {
		total = DefaultDuration
	}
	resolveContextDurations(t.root, total)
	computeSubtree(t.root)

	t.root.Offset = t.root.Delay
	assignOffsets(t.root)

	tl := &Timeline{Root: t.root, byRequest: make(map[int64]*AnimationNode, len(t.nodes))}
	walkNodes(t.root, 0, func(n *AnimationNode, _ int) {
		if isSentinel(n.SubtreeDuration) {
			n.SubtreeDuration = 0
		}
		if isSentinel(n.Duration) {
			n.Duration = n.SubtreeDuration
		}
		if !n.HasRequest() {
			return
		}
		tl.byRequest[n.RequestID] = n
		tl.Duration = max(tl.Duration, n.Offset+n.Duration)
	})
	return tl
}

func refreshMetrics(n *AnimationNode) {
	n.Metrics = n.element.Metrics()
	for _, c := range n.Children {
		refreshMetrics(c)
	}
}

// resolveStagger assigns every child the increment its staggered parent
// advances by after it. The stagger function is called once per node.
func resolveStagger(n *AnimationNode) {
	if n.ChildAnimation == Staggered {
		var fromFunc []time.Duration
		if n.StaggerFunc != nil && len(n.Children) > 0 {
			rects := make([]Rect, len(n.Children))
			for i, c := range n.Children {
				rects[i] = c.Metrics
			}
			fromFunc = n.StaggerFunc(n.Metrics, rects)
		}
		for i, c := range n.Children {
			c.slot = n.Stagger
			if i < len(fromFunc) && fromFunc[i] >= 0 {
				c.slot = fromFunc[i]
			}
		}
	}
	for _, c := range n.Children {
		resolveStagger(c)
	}
}

// markRelevant flags request nodes whose vertical extent intersects the
// viewport. Dead elements are never relevant.
func markRelevant(n *AnimationNode, viewport Size) {
	n.relevant = n.HasRequest() && n.element.IsAlive() && n.Metrics.IntersectsVertically(viewport)
	for _, c := range n.Children {
		markRelevant(c, viewport)
	}
}

// prune drops subtrees without a relevant node and reports whether n
// survives. It depends only on the relevance flags.
func prune(n *AnimationNode) bool {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if prune(c) {
			kept = append(kept, c)
		}
	}
	clear(n.Children[len(kept):])
	n.Children = kept
	return n.relevant || len(kept) > 0
}

// computeSubtree resolves SubtreeDuration bottom-up. Unresolved children are
// skipped; a node with nothing resolved keeps AsGroup.
func computeSubtree(n *AnimationNode) {
	own := AsGroup
	if !isSentinel(n.Duration) {
		own = n.Duration + n.Delay
	}

	span := AsGroup
	var acc time.Duration
	for _, c := range n.Children {
		computeSubtree(c)
		sd := c.SubtreeDuration
		if isSentinel(sd) {
			if n.ChildAnimation == Staggered {
				acc += c.slot
			}
			continue
		}
		if isSentinel(span) {
			span = 0
		}
		switch n.ChildAnimation {
		case Sequential:
			span += sd
		case Staggered:
			span = max(span, acc+sd)
			acc += c.slot
		default:
			span = max(span, sd)
		}
	}
	n.span = span

	switch {
	case isSentinel(own):
		n.SubtreeDuration = span
	case isSentinel(span):
		n.SubtreeDuration = own
	default:
		n.SubtreeDuration = max(own, span)
	}
}

// resolveGroupDurations gives every AsGroup node the duration composed from
// its children. Request nodes with nothing below them take the nearest
// resolved ancestor's duration instead.
func resolveGroupDurations(n *AnimationNode, inherited time.Duration) {
	if n.Duration == AsGroup {
		switch {
		case !isSentinel(n.span):
			n.Duration = n.span
		case n.HasRequest():
			n.Duration = inherited
		}
	}
	next := inherited
	if !isSentinel(n.Duration) {
		next = n.Duration
	}
	for _, c := range n.Children {
		resolveGroupDurations(c, next)
	}
}

// resolveContextDurations gives every AsContext node the total duration.
func resolveContextDurations(n *AnimationNode, total time.Duration) {
	if n.Duration == AsContext {
		n.Duration = total
	}
	for _, c := range n.Children {
		resolveContextDurations(c, total)
	}
}

func assignOffsets(n *AnimationNode) {
	var acc time.Duration
	for _, c := range n.Children {
		switch n.ChildAnimation {
		case Sequential:
			c.Offset = n.Offset + acc
			acc += c.SubtreeDuration
		case Staggered:
			c.Offset = n.Offset + acc
			acc += c.slot
		default:
			c.Offset = n.Offset + c.Delay
		}
		assignOffsets(c)
	}
}

func walkNodes(n *AnimationNode, depth int, fn func(*AnimationNode, int)) {
	fn(n, depth)
	for _, c := range n.Children {
		walkNodes(c, depth+1, fn)
	}
}
