package fluid

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Constructor defaults ---

func TestNewItemDefaults(t *testing.T) {
	it := NewItem("box")
	if it.ID() == 0 {
		t.Error("ID should be non-zero")
	}
	if it.Label() != "box" {
		t.Errorf("Label = %q, want %q", it.Label(), "box")
	}
	if !it.IsAlive() {
		t.Error("new item should be alive")
	}
	if it.Parent() != nil {
		t.Error("new item should have no parent")
	}
}

func TestUniqueIDs(t *testing.T) {
	a := NewItem("a")
	b := NewItem("b")
	if a.ID() == b.ID() {
		t.Errorf("IDs should differ, both %d", a.ID())
	}
}

func TestItemValueDefaults(t *testing.T) {
	it := NewItem("box")
	if got := it.Value("alpha").Get(); got != 1 {
		t.Errorf("alpha = %v, want 1", got)
	}
	if got := it.Value("x").Get(); got != 0 {
		t.Errorf("x = %v, want 0", got)
	}
	if it.Value("x") != it.Value("x") {
		t.Error("Value should return the same handle")
	}
	if got := it.Get("scaleX"); got != 1 {
		t.Errorf("Get(scaleX) = %v, want 1", got)
	}
	it.Set("x", 12)
	if got := it.Get("x"); got != 12 {
		t.Errorf("Get(x) = %v, want 12", got)
	}
}

// --- Tree manipulation ---

func TestAddChild(t *testing.T) {
	p := NewItem("p")
	c := NewItem("c")
	p.AddChild(c)
	if c.Parent() != Element(p) {
		t.Error("child's parent should be p")
	}
	if len(p.Children()) != 1 {
		t.Fatalf("children = %d, want 1", len(p.Children()))
	}
}

func TestAddChildReparents(t *testing.T) {
	a := NewItem("a")
	b := NewItem("b")
	c := NewItem("c")
	a.AddChild(c)
	b.AddChild(c)
	if len(a.Items()) != 0 {
		t.Error("c should be removed from a")
	}
	if c.parent != b {
		t.Error("c's parent should be b")
	}
}

func TestAddChildAt(t *testing.T) {
	p := NewItem("p")
	a, b, c := NewItem("a"), NewItem("b"), NewItem("c")
	p.AddChild(a)
	p.AddChild(c)
	p.AddChildAt(b, 1)
	got := []string{p.Items()[0].Label(), p.Items()[1].Label(), p.Items()[2].Label()}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddChildCyclePanics(t *testing.T) {
	a := NewItem("a")
	b := NewItem("b")
	a.AddChild(b)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on cycle")
		}
	}()
	b.AddChild(a)
}

func TestAddNilChildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil child")
		}
	}()
	NewItem("a").AddChild(nil)
}

func TestRemoveChildWrongParentPanics(t *testing.T) {
	a := NewItem("a")
	b := NewItem("b")
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	a.RemoveChild(b)
}

func TestFind(t *testing.T) {
	root := NewItem("root")
	list := NewItem("list")
	row := NewItem("row")
	root.AddChild(list)
	list.AddChild(row)
	if root.Find("row") != row {
		t.Error("Find(row) failed")
	}
	if root.Find("missing") != nil {
		t.Error("Find(missing) should be nil")
	}
}

// --- Disposal ---

func TestDisposeRecursive(t *testing.T) {
	root := NewItem("root")
	p := NewItem("p")
	c := NewItem("c")
	root.AddChild(p)
	p.AddChild(c)
	p.Dispose()

	if p.IsAlive() || c.IsAlive() {
		t.Error("disposed items should not be alive")
	}
	if len(root.Items()) != 0 {
		t.Error("p should be removed from root")
	}
	if p.ID() != 0 {
		t.Error("ID should be cleared")
	}
	p.Dispose() // second call is a no-op
}

func TestDisposeUnregistersValues(t *testing.T) {
	reg := NewRegistry()
	it := NewItem("slider")
	v := NewValue(0.5)
	it.Expose(reg, "progress", v)
	if _, ok := reg.Lookup(ValueRef{OwnerLabel: "slider", ValueName: "progress"}); !ok {
		t.Fatal("value should be registered")
	}
	it.Dispose()
	if _, ok := reg.Lookup(ValueRef{OwnerLabel: "slider", ValueName: "progress"}); ok {
		t.Error("value should be unregistered on dispose")
	}
}

func TestDebugDisposedPanics(t *testing.T) {
	globalDebug = true
	defer func() { globalDebug = false }()

	a := NewItem("a")
	b := NewItem("b")
	b.Dispose()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for disposed child in debug mode")
		}
	}()
	a.AddChild(b)
}

// --- Metrics ---

func TestWaitForMetrics(t *testing.T) {
	it := NewItem("box")
	if it.MetricsPending() {
		t.Fatal("metrics should not be pending")
	}
	it.SetMetricsPending()
	if !it.MetricsPending() {
		t.Fatal("metrics should be pending")
	}

	done := make(chan error, 1)
	go func() { done <- it.WaitForMetrics(context.Background()) }()
	it.ResolveMetrics(Rect{X: 1, Y: 2, Width: 3, Height: 4})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForMetrics: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForMetrics did not return")
	}
	if it.Metrics() != (Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("Metrics = %v", it.Metrics())
	}
}

func TestWaitForMetricsCancelled(t *testing.T) {
	it := NewItem("box")
	it.SetMetricsPending()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := it.WaitForMetrics(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
