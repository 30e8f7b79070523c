package fluid

import (
	"context"
	"strings"
	"testing"
	"time"
)

const ms = time.Millisecond

func timedRequest(it *Item, key string, d, delay time.Duration) *Request {
	return NewRequest(it.ID(), key, it.Value(key),
		InterpolationConfig{OutputRange: []float64{0, 1}},
		Timing{Duration: d, Delay: delay})
}

func resolveTree(t *testing.T, root Element, reqs ...*Request) *Timeline {
	t.Helper()
	tl, err := Resolve(context.Background(), root, reqs, ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return tl
}

func childrenOf(label string, typ ChildAnimationType, stagger time.Duration, n int) (*Item, []*Item) {
	p := NewItem(label)
	p.Config.ChildAnimation = ChildAnimation{Type: typ, Stagger: stagger}
	var kids []*Item
	for i := 0; i < n; i++ {
		c := NewItem(label + "-c")
		p.AddChild(c)
		kids = append(kids, c)
	}
	return p, kids
}

// --- Composition ---

func TestParallelSubtreeIsMax(t *testing.T) {
	p, kids := childrenOf("p", Parallel, 0, 3)
	tl := resolveTree(t, p,
		timedRequest(kids[0], "x", 100*ms, 0),
		timedRequest(kids[1], "x", 300*ms, 0),
		timedRequest(kids[2], "x", 200*ms, 0),
	)
	if tl == nil {
		t.Fatal("expected a timeline")
	}
	if tl.Root.SubtreeDuration != 300*ms {
		t.Errorf("SubtreeDuration = %v, want 300ms", tl.Root.SubtreeDuration)
	}
	for _, c := range tl.Root.Children {
		if c.Offset != 0 {
			t.Errorf("%s offset = %v, want 0", c.Label, c.Offset)
		}
	}
	if tl.Duration != 300*ms {
		t.Errorf("Duration = %v, want 300ms", tl.Duration)
	}
}

func TestSequentialSubtreeIsSum(t *testing.T) {
	p, kids := childrenOf("p", Sequential, 0, 3)
	tl := resolveTree(t, p,
		timedRequest(kids[0], "x", 100*ms, 0),
		timedRequest(kids[1], "x", 300*ms, 0),
		timedRequest(kids[2], "x", 200*ms, 0),
	)
	if tl.Root.SubtreeDuration != 600*ms {
		t.Errorf("SubtreeDuration = %v, want 600ms", tl.Root.SubtreeDuration)
	}
	// Offsets never overlap the previous sibling.
	cs := tl.Root.Children
	for i := 1; i < len(cs); i++ {
		if cs[i].Offset < cs[i-1].Offset+cs[i-1].SubtreeDuration {
			t.Errorf("child %d offset %v overlaps previous (%v + %v)",
				i, cs[i].Offset, cs[i-1].Offset, cs[i-1].SubtreeDuration)
		}
	}
}

func TestStaggeredSubtree(t *testing.T) {
	const n = 4
	p, kids := childrenOf("p", Staggered, 50*ms, n)
	var reqs []*Request
	for _, k := range kids {
		reqs = append(reqs, timedRequest(k, "alpha", 200*ms, 0))
	}
	tl := resolveTree(t, p, reqs...)
	want := (n-1)*50*ms + 200*ms
	if tl.Root.SubtreeDuration != want {
		t.Errorf("SubtreeDuration = %v, want %v", tl.Root.SubtreeDuration, want)
	}
	for i, c := range tl.Root.Children {
		if c.Offset != time.Duration(i)*50*ms {
			t.Errorf("child %d offset = %v, want %v", i, c.Offset, time.Duration(i)*50*ms)
		}
	}
}

func TestStaggeredDefaultStagger(t *testing.T) {
	p, kids := childrenOf("p", Staggered, 0, 3)
	tl := resolveTree(t, p,
		timedRequest(kids[0], "x", 100*ms, 0),
		timedRequest(kids[1], "x", 100*ms, 0),
		timedRequest(kids[2], "x", 100*ms, 0),
	)
	if want := 2*DefaultStagger + 100*ms; tl.Root.SubtreeDuration != want {
		t.Errorf("SubtreeDuration = %v, want %v", tl.Root.SubtreeDuration, want)
	}
}

func TestStaggerFunc(t *testing.T) {
	p, kids := childrenOf("p", Staggered, 10*ms, 3)
	calls := 0
	p.Config.ChildAnimation.StaggerFunc = func(parent Rect, children []Rect) []time.Duration {
		calls++
		if len(children) != 3 {
			t.Errorf("children = %d, want 3", len(children))
		}
		// Only the first entry; the rest fall back to the scalar.
		return []time.Duration{100 * ms}
	}
	tl := resolveTree(t, p,
		timedRequest(kids[0], "x", 50*ms, 0),
		timedRequest(kids[1], "x", 50*ms, 0),
		timedRequest(kids[2], "x", 50*ms, 0),
	)
	if calls != 1 {
		t.Errorf("stagger func called %d times, want 1", calls)
	}
	want := []time.Duration{0, 100 * ms, 110 * ms}
	for i, c := range tl.Root.Children {
		if c.Offset != want[i] {
			t.Errorf("child %d offset = %v, want %v", i, c.Offset, want[i])
		}
	}
}

func TestSequentialScenario(t *testing.T) {
	e, kids := childrenOf("E", Sequential, 0, 2)
	r1 := timedRequest(kids[0], "x", 200*ms, 0)
	r2 := timedRequest(kids[1], "x", 300*ms, 0)
	tl := resolveTree(t, e, r1, r2)
	if got := tl.Node(r1.ID).Offset; got != 0 {
		t.Errorf("C1 offset = %v, want 0", got)
	}
	if got := tl.Node(r2.ID).Offset; got != 200*ms {
		t.Errorf("C2 offset = %v, want 200ms", got)
	}
	if tl.Root.SubtreeDuration != 500*ms {
		t.Errorf("E subtree = %v, want 500ms", tl.Root.SubtreeDuration)
	}
}

func TestBackwardDirection(t *testing.T) {
	p, kids := childrenOf("p", Sequential, 0, 2)
	p.Config.ChildAnimation.Direction = Backward
	r1 := timedRequest(kids[0], "x", 100*ms, 0)
	r2 := timedRequest(kids[1], "x", 100*ms, 0)
	tl := resolveTree(t, p, r1, r2)
	if tl.Node(r2.ID).Offset != 0 || tl.Node(r1.ID).Offset != 100*ms {
		t.Errorf("offsets = %v, %v; want last child first",
			tl.Node(r1.ID).Offset, tl.Node(r2.ID).Offset)
	}
}

func TestParallelDelayOffsets(t *testing.T) {
	p, kids := childrenOf("p", Parallel, 0, 1)
	r := timedRequest(kids[0], "x", 100*ms, 50*ms)
	tl := resolveTree(t, p, r)
	if got := tl.Node(r.ID).Offset; got != 50*ms {
		t.Errorf("offset = %v, want 50ms", got)
	}
	if tl.Duration != 150*ms {
		t.Errorf("Duration = %v, want 150ms", tl.Duration)
	}
}

func TestSeveralRequestsBecomeLeaves(t *testing.T) {
	it := NewItem("box")
	it.Config.ChildAnimation.Type = Sequential
	rx := timedRequest(it, "x", 100*ms, 0)
	ry := timedRequest(it, "y", 250*ms, 0)
	tl := resolveTree(t, it, rx, ry)
	if tl.Root.HasRequest() {
		t.Error("element node should only group")
	}
	if len(tl.Root.Children) != 2 {
		t.Fatalf("children = %d, want 2 synthetic leaves", len(tl.Root.Children))
	}
	if tl.Node(ry.ID).Offset != 100*ms {
		t.Errorf("y offset = %v, want 100ms", tl.Node(ry.ID).Offset)
	}
	if tl.Duration != 350*ms {
		t.Errorf("Duration = %v, want 350ms", tl.Duration)
	}
}

func TestOwnRequestLeavesFollowChildren(t *testing.T) {
	p, kids := childrenOf("p", Sequential, 0, 1)
	rx := timedRequest(p, "x", 100*ms, 0)
	ry := timedRequest(p, "y", 100*ms, 0)
	rc := timedRequest(kids[0], "x", 200*ms, 0)
	tl := resolveTree(t, p, rx, ry, rc)

	if got := tl.Node(rc.ID).Offset; got != 0 {
		t.Errorf("child offset = %v, want 0", got)
	}
	if got := tl.Node(rx.ID).Offset; got != 200*ms {
		t.Errorf("x offset = %v, want 200ms", got)
	}
	if got := tl.Node(ry.ID).Offset; got != 300*ms {
		t.Errorf("y offset = %v, want 300ms", got)
	}
	if tl.Duration != 400*ms {
		t.Errorf("Duration = %v, want 400ms", tl.Duration)
	}
}

func TestOwnRequestLeavesBackward(t *testing.T) {
	p, kids := childrenOf("p", Sequential, 0, 1)
	p.Config.ChildAnimation.Direction = Backward
	rx := timedRequest(p, "x", 100*ms, 0)
	ry := timedRequest(p, "y", 100*ms, 0)
	rc := timedRequest(kids[0], "x", 200*ms, 0)
	tl := resolveTree(t, p, rx, ry, rc)

	if got := tl.Node(ry.ID).Offset; got != 0 {
		t.Errorf("y offset = %v, want 0", got)
	}
	if got := tl.Node(rc.ID).Offset; got != 200*ms {
		t.Errorf("child offset = %v, want 200ms", got)
	}
}

// --- Sentinels ---

func TestAsGroupTakesChildrenDuration(t *testing.T) {
	p, kids := childrenOf("p", Sequential, 0, 2)
	rp := timedRequest(p, "alpha", AsGroup, 0)
	tl := resolveTree(t, p,
		rp,
		timedRequest(kids[0], "x", 100*ms, 0),
		timedRequest(kids[1], "x", 200*ms, 0),
	)
	if got := tl.Node(rp.ID).Duration; got != 300*ms {
		t.Errorf("AsGroup duration = %v, want 300ms", got)
	}
}

func TestAsContextTakesTotal(t *testing.T) {
	root := NewItem("root")
	a := NewItem("a")
	b, bk := childrenOf("b", Parallel, 0, 1)
	root.AddChild(a)
	root.AddChild(b)
	ra := timedRequest(a, "x", 400*ms, 0)
	rc := timedRequest(bk[0], "alpha", AsContext, 0)
	tl := resolveTree(t, root, ra, rc)
	if got := tl.Node(rc.ID).Duration; got != 400*ms {
		t.Errorf("AsContext duration = %v, want 400ms", got)
	}
	tl.Walk(func(n *AnimationNode, _ int) {
		if isSentinel(n.SubtreeDuration) || isSentinel(n.Duration) {
			t.Errorf("%s still has a sentinel (%v, %v)", n.Label, n.Duration, n.SubtreeDuration)
		}
	})
}

func TestAllSentinelsFallBackToDefault(t *testing.T) {
	it := NewItem("box")
	r := timedRequest(it, "x", AsGroup, 0)
	tl := resolveTree(t, it, r)
	if got := tl.Node(r.ID).Duration; got != DefaultDuration {
		t.Errorf("duration = %v, want %v", got, DefaultDuration)
	}
}

// --- Relevance and pruning ---

func TestRelevanceIsVerticalOnly(t *testing.T) {
	root := NewItem("root")
	left := NewItem("left")
	below := NewItem("below")
	root.AddChild(left)
	root.AddChild(below)
	// Far off to the side but vertically inside: still relevant.
	left.SetMetrics(Rect{X: -5000, Y: 100, Width: 100, Height: 100})
	below.SetMetrics(Rect{X: 0, Y: 5000, Width: 100, Height: 100})

	rl := timedRequest(left, "x", 100*ms, 0)
	rb := timedRequest(below, "x", 100*ms, 0)
	tl := resolveTree(t, root, rl, rb)
	if tl.Node(rl.ID) == nil {
		t.Error("horizontally off-screen node should be relevant")
	}
	if tl.Node(rb.ID) != nil {
		t.Error("vertically off-screen node should be pruned")
	}
}

func TestAllPrunedReturnsNil(t *testing.T) {
	it := NewItem("box")
	it.SetMetrics(Rect{Y: -500, Height: 100})
	tl := resolveTree(t, it, timedRequest(it, "x", 100*ms, 0))
	if tl != nil {
		t.Error("expected no timeline")
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	root := NewItem("root")
	for i := 0; i < 4; i++ {
		c := NewItem("c")
		root.AddChild(c)
		if i%2 == 0 {
			c.SetMetrics(Rect{Y: 9000, Height: 10})
		}
	}
	var reqs []*Request
	for _, c := range root.Items() {
		r := timedRequest(c, "x", 100*ms, 0)
		r.normalize()
		reqs = append(reqs, r)
	}
	tree := buildTree(root, reqs)
	markRelevant(tree.root, DefaultViewport)
	prune(tree.root)
	first := dumpShape(tree.root)
	prune(tree.root)
	if second := dumpShape(tree.root); second != first {
		t.Errorf("second prune changed the tree:\n%s\nvs\n%s", first, second)
	}
	if len(tree.root.Children) != 2 {
		t.Errorf("children = %d, want 2", len(tree.root.Children))
	}
}

func dumpShape(n *AnimationNode) string {
	var b strings.Builder
	walkNodes(n, 0, func(n *AnimationNode, depth int) {
		b.WriteString(strings.Repeat(" ", depth))
		b.WriteString(n.Label)
		b.WriteByte('\n')
	})
	return b.String()
}

func TestUnrelatedSubtreesArePruned(t *testing.T) {
	root := NewItem("root")
	idle := NewItem("idle")
	idle.AddChild(NewItem("idle-child"))
	busy := NewItem("busy")
	root.AddChild(idle)
	root.AddChild(busy)
	tl := resolveTree(t, root, timedRequest(busy, "x", 100*ms, 0))
	if len(tl.Root.Children) != 1 || tl.Root.Children[0].Label != "busy" {
		t.Errorf("unexpected tree:\n%s", dumpShape(tl.Root))
	}
}

// --- Metrics ---

func TestResolveWaitsForMetrics(t *testing.T) {
	root := NewItem("root")
	a := NewItem("a")
	b := NewItem("b")
	root.AddChild(a)
	root.AddChild(b)
	a.SetMetricsPending()
	b.SetMetricsPending()
	go a.ResolveMetrics(Rect{Y: 10, Height: 10})
	go b.ResolveMetrics(Rect{Y: 9000, Height: 10})

	ra := timedRequest(a, "x", 100*ms, 0)
	rb := timedRequest(b, "x", 100*ms, 0)
	tl := resolveTree(t, root, ra, rb)
	if tl.Node(ra.ID) == nil {
		t.Error("a should be relevant after its metrics resolved")
	}
	if tl.Node(rb.ID) != nil {
		t.Error("b should be pruned after its metrics resolved off-screen")
	}
}

func TestResolveCancelled(t *testing.T) {
	it := NewItem("box")
	it.SetMetricsPending()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tl, err := Resolve(ctx, it, []*Request{timedRequest(it, "x", 100*ms, 0)}, ResolveOptions{})
	if err == nil || tl != nil {
		t.Errorf("Resolve = %v, %v; want nil timeline and an error", tl, err)
	}
}

func TestResolveDeadRoot(t *testing.T) {
	it := NewItem("box")
	r := timedRequest(it, "x", 100*ms, 0)
	it.Dispose()
	if tl := resolveTree(t, it, r); tl != nil {
		t.Error("dead root should yield no timeline")
	}
}

func TestTimelineDump(t *testing.T) {
	e, kids := childrenOf("E", Sequential, 0, 2)
	tl := resolveTree(t, e,
		timedRequest(kids[0], "x", 200*ms, 0),
		timedRequest(kids[1], "x", 300*ms, 0),
	)
	var b strings.Builder
	if err := tl.Dump(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"timeline 500ms", "E sequential", "offset=200ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
