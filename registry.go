package fluid

import (
	"slices"
	"weak"
)

// Registry maps (owner label, value name) to live values for value-linked
// rules, and routes style changes between elements for shared rules.
// Entries are weak: a registered value does not keep its owner alive.
type Registry struct {
	values map[ValueRef]weak.Pointer[Value]

	// subscriptions by source label
	subs map[string][]subscription
	// queued mirrors by subscriber label
	mirrors map[string][]Mirror
}

type subscription struct {
	subscriber string
	rule       *SharedRule
}

// Mirror is one style change published by a source element and queued for
// a subscriber.
type Mirror struct {
	Source   string
	Key      string
	From, To float64
	Rule     *SharedRule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		values:  make(map[ValueRef]weak.Pointer[Value]),
		subs:    make(map[string][]subscription),
		mirrors: make(map[string][]Mirror),
	}
}

// Register exposes v under (owner, name), replacing any previous entry.
func (r *Registry) Register(owner, name string, v *Value) {
	r.values[ValueRef{OwnerLabel: owner, ValueName: name}] = weak.Make(v)
}

// Lookup returns the live value for ref. Collected entries are dropped.
func (r *Registry) Lookup(ref ValueRef) (*Value, bool) {
	wp, ok := r.values[ref]
	if !ok {
		return nil, false
	}
	v := wp.Value()
	if v == nil {
		delete(r.values, ref)
		return nil, false
	}
	return v, true
}

// Unregister removes every value, subscription and queued mirror involving
// label. Called when the element is disposed.
func (r *Registry) Unregister(label string) {
	for ref := range r.values {
		if ref.OwnerLabel == label {
			delete(r.values, ref)
		}
	}
	delete(r.subs, label)
	for src, list := range r.subs {
		list = slices.DeleteFunc(list, func(s subscription) bool { return s.subscriber == label })
		if len(list) == 0 {
			delete(r.subs, src)
		} else {
			r.subs[src] = list
		}
	}
	delete(r.mirrors, label)
}

// Subscribe mirrors style changes published by source onto subscriber,
// animated with rule's animation. Subscribing twice is a no-op.
func (r *Registry) Subscribe(source, subscriber string, rule *SharedRule) {
	s := subscription{subscriber: subscriber, rule: rule}
	if slices.Contains(r.subs[source], s) {
		return
	}
	r.subs[source] = append(r.subs[source], s)
}

// Unsubscribe removes a subscription added by Subscribe.
func (r *Registry) Unsubscribe(source, subscriber string, rule *SharedRule) {
	s := subscription{subscriber: subscriber, rule: rule}
	r.subs[source] = slices.DeleteFunc(r.subs[source], func(x subscription) bool { return x == s })
	if len(r.subs[source]) == 0 {
		delete(r.subs, source)
	}
}

// Subscribed reports whether subscriber follows source through rule.
func (r *Registry) Subscribed(source, subscriber string, rule *SharedRule) bool {
	return slices.Contains(r.subs[source], subscription{subscriber: subscriber, rule: rule})
}

// Publish queues a style change of source for every subscriber.
func (r *Registry) Publish(source, key string, from, to float64) {
	for _, s := range r.subs[source] {
		r.mirrors[s.subscriber] = append(r.mirrors[s.subscriber], Mirror{
			Source: source, Key: key, From: from, To: to, Rule: s.rule,
		})
	}
}

// TakeMirrors returns and clears the mirrors queued for subscriber.
func (r *Registry) TakeMirrors(subscriber string) []Mirror {
	m := r.mirrors[subscriber]
	delete(r.mirrors, subscriber)
	return m
}

// Mirrors returns the mirrors queued for subscriber without clearing them.
// The slice MUST NOT be mutated.
func (r *Registry) Mirrors(subscriber string) []Mirror {
	return r.mirrors[subscriber]
}

// ConsumeMirrors clears the first n mirrors queued for subscriber. Mirrors
// queued after they were read stay pending.
func (r *Registry) ConsumeMirrors(subscriber string, n int) {
	m := r.mirrors[subscriber]
	if n >= len(m) {
		delete(r.mirrors, subscriber)
		return
	}
	r.mirrors[subscriber] = slices.Clone(m[n:])
}

// PendingMirrors returns the sorted labels of subscribers with queued mirrors.
func (r *Registry) PendingMirrors() []string {
	labels := make([]string, 0, len(r.mirrors))
	for l, m := range r.mirrors {
		if len(m) > 0 {
			labels = append(labels, l)
		}
	}
	slices.Sort(labels)
	return labels
}
