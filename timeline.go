package fluid

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Timeline is the resolved schedule of one batch. Offsets are relative to
// the start of the batch.
type Timeline struct {
	Root     *AnimationNode
	Duration time.Duration

	byRequest map[int64]*AnimationNode
}

// Node returns the node carrying the request, or nil if it was pruned.
func (t *Timeline) Node(requestID int64) *AnimationNode {
	return t.byRequest[requestID]
}

// Walk visits the surviving nodes in pre-order.
func (t *Timeline) Walk(fn func(n *AnimationNode, depth int)) {
	walkNodes(t.Root, 0, fn)
}

// Dump writes a pre-order listing of id, label, duration and offset.
func (t *Timeline) Dump(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "timeline %v\n", t.Duration)
	t.Walk(func(n *AnimationNode, depth int) {
		fmt.Fprintf(&b, "%s%d %s %s duration=%v subtree=%v offset=%v",
			strings.Repeat("  ", depth), n.ID, n.Label, n.ChildAnimation,
			n.Duration, n.SubtreeDuration, n.Offset)
		if n.HasRequest() {
			fmt.Fprintf(&b, " request=%d", n.RequestID)
		}
		b.WriteByte('\n')
	})
	_, err := io.WriteString(w, b.String())
	return err
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	// Viewport is used for the relevance mask. Zero means DefaultViewport.
	Viewport Size
}

// Resolve builds the animation tree for root and reqs, waits for pending
// metrics and computes durations and offsets. A nil timeline with a nil
// error means nothing in the batch is relevant or the root died while
// waiting. The only errors are those of ctx.
func Resolve(ctx context.Context, root Element, reqs []*Request, opts ResolveOptions) (*Timeline, error) {
	if root == nil || !root.IsAlive() || len(reqs) == 0 {
		return nil, nil
	}
	for _, r := range reqs {
		r.normalize()
	}
	tree := buildTree(root, reqs)
	if err := tree.wait(ctx); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", root.Label(), err)
	}
	viewport := opts.Viewport
	if viewport == (Size{}) {
		viewport = DefaultViewport
	}
	return tree.finish(viewport), nil
}
