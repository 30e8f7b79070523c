package fluid

import (
	"context"
	"sync"
)

// Element is a node of the host UI hierarchy that can own animation
// configuration. The core only reads elements; the host owns them.
type Element interface {
	ID() uint32
	Label() string
	Parent() Element
	Children() []Element
	Configuration() *Configuration
	Metrics() Rect
	IsAlive() bool

	// Value returns the current-value handle for a property, creating it at
	// the property's declared default on first use.
	Value(key string) *Value
}

// MetricsWaiter is implemented by elements whose geometry may not be known
// yet. Tree resolution waits for every pending element concurrently.
type MetricsWaiter interface {
	MetricsPending() bool
	WaitForMetrics(ctx context.Context) error
}

// itemIDCounter is a plain counter; items are owned by the UI goroutine.
var itemIDCounter uint32

func nextItemID() uint32 {
	itemIDCounter++
	return itemIDCounter
}

// Item is the in-memory Element implementation used by stages, scene files
// and tests. A single flat struct is used for every element.
type Item struct {
	id    uint32
	label string

	parent   *Item
	children []*Item

	// Config is the element's declarative animation configuration.
	Config Configuration

	mu      sync.Mutex // guards metrics and pending
	metrics Rect
	pending chan struct{}

	values   map[string]*Value
	registry *Registry
	disposed bool
}

// NewItem creates an item with the given label.
func NewItem(label string) *Item {
	return &Item{id: nextItemID(), label: label}
}

// ID returns the item's process-unique id (0 once disposed).
func (it *Item) ID() uint32 { return it.id }

// Label returns the item's label.
func (it *Item) Label() string { return it.label }

// Parent returns the parent element, or nil at the root.
func (it *Item) Parent() Element {
	if it.parent == nil {
		return nil
	}
	return it.parent
}

// Children returns the children as elements. Use Items for the typed list.
func (it *Item) Children() []Element {
	out := make([]Element, len(it.children))
	for i, c := range it.children {
		out[i] = c
	}
	return out
}

// Items returns the child list. The returned slice MUST NOT be mutated by the caller.
func (it *Item) Items() []*Item {
	return it.children
}

// Configuration returns a pointer to the item's configuration.
func (it *Item) Configuration() *Configuration { return &it.Config }

// IsAlive reports whether the item has not been disposed.
func (it *Item) IsAlive() bool { return !it.disposed }

// --- Metrics ---

// Metrics returns the last known geometry.
func (it *Item) Metrics() Rect {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.metrics
}

// SetMetrics stores the item's geometry.
func (it *Item) SetMetrics(r Rect) {
	it.mu.Lock()
	it.metrics = r
	it.mu.Unlock()
}

// SetMetricsPending marks the geometry as being measured. Timeline
// resolution waits until ResolveMetrics is called.
func (it *Item) SetMetricsPending() {
	it.mu.Lock()
	if it.pending == nil {
		it.pending = make(chan struct{})
	}
	it.mu.Unlock()
}

// ResolveMetrics stores the measured geometry and releases every waiter.
// Safe to call from any goroutine.
func (it *Item) ResolveMetrics(r Rect) {
	it.mu.Lock()
	it.metrics = r
	it.releasePending()
	it.mu.Unlock()
}

func (it *Item) releasePending() {
	if it.pending != nil {
		close(it.pending)
		it.pending = nil
	}
}

// MetricsPending reports whether the geometry is still being measured.
func (it *Item) MetricsPending() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.pending != nil
}

// WaitForMetrics blocks until the geometry is known or ctx is done.
func (it *Item) WaitForMetrics(ctx context.Context) error {
	it.mu.Lock()
	ch := it.pending
	it.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Values ---

// Value returns the handle for key, creating it at the property default.
func (it *Item) Value(key string) *Value {
	if v, ok := it.values[key]; ok {
		return v
	}
	if it.values == nil {
		it.values = make(map[string]*Value)
	}
	d, _ := Property(key)
	v := NewValue(d.Default)
	it.values[key] = v
	return v
}

// Get returns the current value of key without creating a handle.
func (it *Item) Get(key string) float64 {
	if v, ok := it.values[key]; ok {
		return v.Get()
	}
	d, _ := Property(key)
	return d.Default
}

// Set writes key directly, bypassing animation.
func (it *Item) Set(key string, x float64) {
	it.Value(key).Set(x)
}

// Expose publishes one of the item's values under name so value-linked
// rules on other elements can follow it. The entry is removed on Dispose.
func (it *Item) Expose(reg *Registry, name string, v *Value) {
	it.registry = reg
	reg.Register(it.label, name, v)
}

// --- Tree manipulation ---

// AddChild appends child to this item's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this item (cycle).
func (it *Item) AddChild(child *Item) {
	if child == nil {
		panic("fluid: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(it, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, it) {
		panic("fluid: adding child would create a cycle")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = it
	it.children = append(it.children, child)
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(it)
	}
}

// AddChildAt inserts child at the given index.
// Same reparenting and cycle-check behavior as AddChild.
func (it *Item) AddChildAt(child *Item, index int) {
	if child == nil {
		panic("fluid: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(it, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if isAncestor(child, it) {
		panic("fluid: adding child would create a cycle")
	}
	if index < 0 || index > len(it.children) {
		panic("fluid: child index out of range")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = it
	it.children = append(it.children, nil)
	copy(it.children[index+1:], it.children[index:])
	it.children[index] = child
}

// RemoveChild detaches child from this item.
// Panics if child's parent is not this item.
func (it *Item) RemoveChild(child *Item) {
	if child.parent != it {
		panic("fluid: child's parent is not this item")
	}
	it.removeChildByPtr(child)
	child.parent = nil
}

// RemoveFromParent detaches this item from its parent.
// No-op if this item has no parent.
func (it *Item) RemoveFromParent() {
	if it.parent == nil {
		return
	}
	it.parent.RemoveChild(it)
}

// Find returns the first item in this subtree (pre-order) with the label.
func (it *Item) Find(label string) *Item {
	if it.label == label {
		return it
	}
	for _, c := range it.children {
		if f := c.Find(label); f != nil {
			return f
		}
	}
	return nil
}

// Walk visits this item and its descendants in pre-order.
func (it *Item) Walk(fn func(*Item)) {
	fn(it)
	for _, c := range it.children {
		c.Walk(fn)
	}
}

// --- Disposal ---

// Dispose removes this item from its parent, marks it as not alive, and
// recursively disposes all descendants. Exposed values are unregistered.
func (it *Item) Dispose() {
	if it.disposed {
		return
	}
	it.RemoveFromParent()
	it.dispose()
}

func (it *Item) dispose() {
	it.disposed = true
	it.id = 0
	for _, child := range it.children {
		child.parent = nil
		child.dispose()
	}
	it.children = nil
	it.parent = nil
	if it.registry != nil {
		it.registry.Unregister(it.label)
		it.registry = nil
	}
	it.mu.Lock()
	it.releasePending()
	it.mu.Unlock()
}

// IsDisposed returns true if this item has been disposed.
func (it *Item) IsDisposed() bool {
	return it.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of item.
func isAncestor(candidate, item *Item) bool {
	for p := item; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from it.children without clearing child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (it *Item) removeChildByPtr(child *Item) {
	for i, c := range it.children {
		if c == child {
			copy(it.children[i:], it.children[i+1:])
			it.children[len(it.children)-1] = nil
			it.children = it.children[:len(it.children)-1]
			return
		}
	}
}
