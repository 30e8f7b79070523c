package fluid

import (
	"context"
	"math"
	"testing"
	"time"
)

type recordingSink struct {
	events []AnimationEvent
}

func (s *recordingSink) EmitEvent(e AnimationEvent) { s.events = append(s.events, e) }

func (s *recordingSink) count(t EventType) int {
	n := 0
	for _, e := range s.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func linear(it *Item, key string, from, to float64, d time.Duration) *Request {
	return NewRequest(it.ID(), key, it.Value(key),
		InterpolationConfig{OutputRange: []float64{from, to}},
		Timing{Duration: d})
}

func commit(t *testing.T, r *Runner, root Element, reqs ...*Request) {
	t.Helper()
	if err := r.Commit(context.Background(), root, nil, reqs, false); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func assertValue(t *testing.T, it *Item, key string, want float64) {
	t.Helper()
	if got := it.Get(key); math.Abs(got-want) > 1e-3 {
		t.Errorf("%s.%s = %v, want %v", it.Label(), key, got, want)
	}
}

// --- Scheduling ---

func TestRunnerLinearProgress(t *testing.T) {
	it := NewItem("box")
	r := NewRunner()
	commit(t, r, it, linear(it, "x", 0, 100, 100*ms))

	r.Tick(50 * ms)
	assertValue(t, it, "x", 50)
	if !r.IsRunning(it.ID(), "x") {
		t.Error("animation should be running")
	}
	r.Tick(100 * ms)
	assertValue(t, it, "x", 100)
	if r.IsRunning(it.ID(), "x") {
		t.Error("animation should have finished")
	}
}

func TestRunnerWindowClamping(t *testing.T) {
	root, kids := childrenOf("root", Sequential, 0, 2)
	a, b := kids[0], kids[1]
	began := 0
	rb := linear(b, "x", 10, 20, 100*ms)
	rb.OnBegin = func() { began++ }

	r := NewRunner()
	commit(t, r, root, linear(a, "x", 0, 100, 100*ms), rb)

	r.Tick(50 * ms)
	assertValue(t, a, "x", 50)
	assertValue(t, b, "x", 10) // held at its start value
	if began != 0 {
		t.Error("b should not have begun before its window")
	}

	r.Tick(100 * ms)
	assertValue(t, a, "x", 100)
	assertValue(t, b, "x", 15)
	if began != 1 {
		t.Errorf("b began %d times, want 1", began)
	}

	r.Tick(time.Second)
	assertValue(t, b, "x", 20)
}

func TestRunnerLastWriteWins(t *testing.T) {
	it := NewItem("box")
	sink := &recordingSink{}
	r := NewRunner(WithEventSink(sink))

	ended := 0
	first := linear(it, "x", 0, 100, time.Second)
	first.OnEnd = func() { ended++ }
	commit(t, r, it, first)
	r.Tick(100 * ms)

	second := linear(it, "x", 0, 10, 100*ms)
	commit(t, r, it, second)
	if sink.count(EventAnimationCancelled) != 1 {
		t.Errorf("cancelled events = %d, want 1", sink.count(EventAnimationCancelled))
	}
	for i := 0; i < 20; i++ {
		r.Tick(100 * ms)
	}
	assertValue(t, it, "x", 10)
	if ended != 0 {
		t.Errorf("cancelled animation fired OnEnd %d times", ended)
	}
}

func TestRunnerDeferUntilIdle(t *testing.T) {
	it := NewItem("box")
	r := NewRunner()
	if err := r.Commit(context.Background(), it, nil, []*Request{linear(it, "x", 0, 100, 100*ms)}, true); err != nil {
		t.Fatal(err)
	}
	r.Tick(50 * ms)
	assertValue(t, it, "x", 0)

	r.SignalIdle()
	r.Tick(50 * ms)
	assertValue(t, it, "x", 50)

	// Once idle, later deferred commits start right away.
	commit2 := linear(it, "y", 0, 100, 100*ms)
	if err := r.Commit(context.Background(), it, nil, []*Request{commit2}, true); err != nil {
		t.Fatal(err)
	}
	r.Tick(50 * ms)
	assertValue(t, it, "y", 50)
}

func TestRunnerIrrelevantBatchCallbacks(t *testing.T) {
	it := NewItem("box")
	it.SetMetrics(Rect{Y: 5000, Height: 10})
	begins, ends := 0, 0
	req := linear(it, "x", 0, 100, 100*ms)
	req.OnBegin = func() { begins++ }
	req.OnEnd = func() { ends++ }

	sink := &recordingSink{}
	r := NewRunner(WithEventSink(sink))
	commit(t, r, it, req)
	if begins != 0 || ends != 0 {
		t.Fatal("callbacks must not run synchronously")
	}
	if sink.count(EventBatchSkipped) != 1 {
		t.Errorf("skipped events = %d, want 1", sink.count(EventBatchSkipped))
	}
	r.Tick(16 * ms)
	r.Tick(16 * ms)
	if begins != 1 || ends != 1 {
		t.Errorf("callbacks ran %d/%d times, want 1/1", begins, ends)
	}
	assertValue(t, it, "x", 100)
}

func TestRunnerNoopCommits(t *testing.T) {
	it := NewItem("box")
	r := NewRunner()
	commit(t, r, it)
	dead := NewItem("dead")
	req := linear(dead, "x", 0, 1, 100*ms)
	dead.Dispose()
	commit(t, r, dead, req)
	if r.Active() {
		t.Error("no-op commits should not schedule anything")
	}
}

func TestRunnerDeadOwnerDropped(t *testing.T) {
	root := NewItem("root")
	child := NewItem("child")
	root.AddChild(child)
	ended := 0
	req := linear(child, "x", 0, 100, 100*ms)
	req.OnEnd = func() { ended++ }

	r := NewRunner()
	commit(t, r, root, req)
	r.Tick(10 * ms)
	child.Dispose()
	r.Tick(10 * ms)
	if r.IsRunning(req.ItemID, "x") {
		t.Error("animation of a dead item should be dropped")
	}
	r.Tick(time.Second)
	if ended != 0 {
		t.Error("dropped animation must not fire OnEnd")
	}
}

func TestRunnerSpringNormalized(t *testing.T) {
	it := NewItem("box")
	req := NewRequest(it.ID(), "x", it.Value("x"),
		InterpolationConfig{OutputRange: []float64{0, 100}}, SpringStiff)
	r := NewRunner()
	commit(t, r, it, req)
	d := req.Timing().Duration
	if d <= 0 {
		t.Fatalf("spring duration = %v, want > 0", d)
	}
	r.Tick(d)
	assertValue(t, it, "x", 100)
}

// --- Driver contexts ---

func TestRunnerSharedDriverExtendsMonotonically(t *testing.T) {
	it := NewItem("box")
	dc := NewDriverContext()
	r := NewRunner()

	if err := r.Commit(context.Background(), it, dc, []*Request{linear(it, "x", 0, 100, 300*ms)}, false); err != nil {
		t.Fatal(err)
	}
	if dc.Driver().Duration() != 300*ms {
		t.Fatalf("driver duration = %v, want 300ms", dc.Driver().Duration())
	}
	if err := r.Commit(context.Background(), it, dc, []*Request{linear(it, "y", 0, 100, 100*ms)}, false); err != nil {
		t.Fatal(err)
	}
	if dc.Driver().Duration() != 300*ms {
		t.Errorf("driver shrank to %v", dc.Driver().Duration())
	}

	dc.Driver().SetProgress(0.5)
	r.Tick(time.Second) // external drivers ignore dt
	assertValue(t, it, "x", 50)
	assertValue(t, it, "y", 100)

	dc.SetActive(false)
	r.Tick(0)
	if r.IsRunning(it.ID(), "x") {
		t.Error("deactivating the context should unregister its animations")
	}
}

// --- Repeats ---

func TestRepeatBarrierWaitsForEveryMember(t *testing.T) {
	root := NewItem("root")
	var items []*Item
	durations := []time.Duration{100 * ms, 200 * ms, 300 * ms}
	var reqs []*Request
	for _, d := range durations {
		it := NewItem("looper")
		root.AddChild(it)
		items = append(items, it)
		req := linear(it, "x", 0, 1, d)
		req.Loop = 1
		reqs = append(reqs, req)
	}

	sink := &recordingSink{}
	r := NewRunner(WithEventSink(sink))
	commit(t, r, root, reqs...)

	r.Tick(100 * ms)
	r.Tick(100 * ms)
	// Two of three members finished: no repeat yet.
	if sink.count(EventBatchRepeated) != 0 {
		t.Fatal("batch repeated before every member finished")
	}
	if r.IsRunning(items[0].ID(), "x") || r.IsRunning(items[1].ID(), "x") {
		t.Error("finished members must wait for the barrier")
	}

	r.Tick(100 * ms)
	if sink.count(EventBatchRepeated) != 1 {
		t.Fatalf("repeated events = %d, want 1", sink.count(EventBatchRepeated))
	}
	for i, it := range items {
		if !r.IsRunning(it.ID(), "x") {
			t.Errorf("member %d should run again", i)
		}
	}

	// Loop count is exhausted after one repeat.
	for i := 0; i < 10; i++ {
		r.Tick(100 * ms)
	}
	if sink.count(EventBatchRepeated) != 1 {
		t.Errorf("repeated events = %d, want 1", sink.count(EventBatchRepeated))
	}
}

func TestRepeatSkipsBusyProperty(t *testing.T) {
	root := NewItem("root")
	a := NewItem("a")
	b := NewItem("b")
	root.AddChild(a)
	root.AddChild(b)

	ra := linear(a, "x", 0, 1, 100*ms)
	ra.Loop = 1
	rb := linear(b, "y", 0, 1, 300*ms)
	rb.Loop = 1

	r := NewRunner()
	commit(t, r, root, ra, rb)
	r.Tick(100 * ms) // a finished, b still running

	// A newer animation takes a.x while the batch waits for b.
	newer := linear(a, "x", 5, 6, time.Second)
	commit(t, r, root, newer)

	r.Tick(200 * ms) // b finished: the barrier opens
	got := r.running[propertyKey{item: a.ID(), key: "x"}]
	if got == nil || got.req.ID != newer.ID {
		t.Errorf("a.x should still be driven by the newer request")
	}
	if !r.IsRunning(b.ID(), "y") {
		t.Error("b's repeat should have been committed")
	}
}

func TestRepeatCancelledMemberLeavesBarrier(t *testing.T) {
	root := NewItem("root")
	a := NewItem("a")
	b := NewItem("b")
	root.AddChild(a)
	root.AddChild(b)
	ra := linear(a, "x", 0, 1, 300*ms)
	ra.Loop = 1
	rb := linear(b, "x", 0, 1, 100*ms)
	rb.Loop = 1

	sink := &recordingSink{}
	r := NewRunner(WithEventSink(sink))
	commit(t, r, root, ra, rb)
	r.Tick(100 * ms) // b finished
	r.Cancel(a.ID(), "x")

	if sink.count(EventBatchRepeated) != 1 {
		t.Fatalf("repeated events = %d, want 1", sink.count(EventBatchRepeated))
	}
	if r.IsRunning(a.ID(), "x") {
		t.Error("cancelled member must not repeat")
	}
	if !r.IsRunning(b.ID(), "x") {
		t.Error("b should repeat once a left the barrier")
	}
}

func TestRepeatDroppedMemberReleasesBarrier(t *testing.T) {
	root := NewItem("root")
	a := NewItem("a")
	b := NewItem("b")
	root.AddChild(a)
	root.AddChild(b)
	ends := 0
	ra := linear(a, "x", 0, 1, 100*ms)
	ra.Loop = 1
	ra.OnEnd = func() { ends++ }
	rb := linear(b, "x", 0, 1, 300*ms)
	rb.Loop = 1

	sink := &recordingSink{}
	r := NewRunner(WithEventSink(sink))
	commit(t, r, root, ra, rb)
	r.Tick(100 * ms) // a finished, waits for b
	b.Dispose()
	r.Tick(10 * ms) // b dropped: the barrier opens

	if sink.count(EventBatchRepeated) != 1 {
		t.Fatalf("repeated events = %d, want 1", sink.count(EventBatchRepeated))
	}
	if !r.IsRunning(a.ID(), "x") || !r.Active() {
		t.Fatal("a's repeat should be live")
	}

	r.Tick(50 * ms)
	assertValue(t, a, "x", 0.5)
	r.Tick(60 * ms)
	assertValue(t, a, "x", 1)
	if r.IsRunning(a.ID(), "x") {
		t.Error("a's repeat should have finished")
	}
	if ends != 1 {
		t.Errorf("OnEnd calls = %d, want 1", ends)
	}
	if r.Active() {
		t.Error("runner should be inactive")
	}
}

func TestRunnerActiveAfterCancel(t *testing.T) {
	it := NewItem("box")
	r := NewRunner()
	commit(t, r, it, linear(it, "x", 0, 1, 100*ms))
	if !r.Active() {
		t.Fatal("runner should be active after commit")
	}
	r.Cancel(it.ID(), "x")
	if r.Active() {
		t.Error("cancelled animations should not keep the runner active")
	}
}

func TestFlipReversesAndEndsOnce(t *testing.T) {
	it := NewItem("box")
	ends := 0
	req := linear(it, "x", 0, 100, 100*ms)
	req.Flip = 1
	req.OnEnd = func() { ends++ }

	r := NewRunner()
	commit(t, r, it, req)
	r.Tick(100 * ms)
	assertValue(t, it, "x", 100)
	if ends != 0 {
		t.Error("OnEnd should wait for the last iteration")
	}
	r.Tick(50 * ms)
	assertValue(t, it, "x", 50)
	r.Tick(50 * ms)
	assertValue(t, it, "x", 0)
	if ends != 1 {
		t.Errorf("OnEnd fired %d times, want 1", ends)
	}
}

func TestRepeatCloneDoesNotMutateOriginal(t *testing.T) {
	it := NewItem("box")
	req := linear(it, "x", 0, 100, 100*ms)
	req.Yoyo = 2
	c := req.repeat()
	if c.ID == req.ID {
		t.Error("clone needs a fresh id")
	}
	if c.Yoyo != 1 || req.Yoyo != 2 {
		t.Errorf("Yoyo = %d (clone), %d (original)", c.Yoyo, req.Yoyo)
	}
	if req.Interpolation.OutputRange[0] != 0 || c.Interpolation.OutputRange[0] != 100 {
		t.Error("clone should reverse a copy of the output range")
	}

	inf := linear(it, "x", 0, 1, 100*ms)
	inf.Loop = Infinite
	if inf.repeat().Loop != Infinite {
		t.Error("infinite loops stay infinite")
	}
	if linear(it, "x", 0, 1, 100*ms).repeat() != nil {
		t.Error("non-repeating request should not clone")
	}
}

// --- Links, metrics, lifecycle ---

func TestRunnerValueLink(t *testing.T) {
	it := NewItem("box")
	src := NewValue(0.5)
	r := NewRunner()
	r.Link(it, "x", src, InterpolationConfig{InputRange: []float64{0, 1}, OutputRange: []float64{0, 200}})
	r.Tick(16 * ms)
	assertValue(t, it, "x", 100)
	src.Set(1)
	r.Tick(16 * ms)
	assertValue(t, it, "x", 200)

	commit(t, r, it, linear(it, "x", 0, 10, 100*ms))
	if r.Linked(it.ID(), "x") {
		t.Error("a newer animation should replace the link")
	}
}

func TestRunnerSettleWaitsForMetrics(t *testing.T) {
	it := NewItem("box")
	it.SetMetricsPending()
	r := NewRunner()
	commit(t, r, it, linear(it, "x", 0, 100, 100*ms))
	if r.IsRunning(it.ID(), "x") {
		t.Fatal("nothing should run before metrics resolve")
	}
	go it.ResolveMetrics(Rect{Y: 10, Height: 10})
	r.Settle()
	if !r.IsRunning(it.ID(), "x") {
		t.Error("animation should be scheduled after Settle")
	}
}

func TestRunnerClose(t *testing.T) {
	it := NewItem("box")
	it.SetMetricsPending()
	r := NewRunner()
	commit(t, r, it, linear(it, "x", 0, 100, 100*ms))
	r.Close()
	if err := r.Commit(context.Background(), it, nil, []*Request{linear(it, "y", 0, 1, ms)}, false); err != ErrRunnerClosed {
		t.Errorf("Commit after Close = %v, want ErrRunnerClosed", err)
	}
}

func TestRunnerDebugOwnerCheck(t *testing.T) {
	r := NewRunner(WithLogger(discardLogger()))
	r.SetDebugMode(true)
	defer r.SetDebugMode(false)

	panicked := make(chan bool)
	go func() {
		defer func() { panicked <- recover() != nil }()
		r.Tick(ms)
	}()
	if !<-panicked {
		t.Error("expected panic when ticking from another goroutine")
	}
	r.Tick(ms) // owner goroutine is fine
}
