package fluid

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/petermattis/goid"
)

// globalDebug mirrors the most recently set Stage debug flag so that item
// operations (which lack a Stage pointer) can check it cheaply.
var globalDebug bool

// debugCheckDisposed panics with a descriptive message when a disposed item
// is used in a tree operation. Only called in debug mode.
func debugCheckDisposed(it *Item, op string) {
	if it.disposed {
		panic(fmt.Sprintf("fluid debug: %s on disposed item %q", op, it.label))
	}
}

// debugCheckTreeDepth warns on stderr if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(it *Item) {
	depth := 0
	for p := it; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(os.Stderr, "[fluid] warning: tree depth %d exceeds %d (item %q)\n",
			depth, debugMaxTreeDepth, it.label)
	}
}

// debugCheckChildCount warns on stderr if an item has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(it *Item) {
	if len(it.children) > debugMaxChildCount {
		_, _ = fmt.Fprintf(os.Stderr, "[fluid] warning: item %q has %d children (threshold %d)\n",
			it.label, len(it.children), debugMaxChildCount)
	}
}

// SetDebugMode enables or disables debug mode. When enabled, the runner logs
// at debug level to stderr (unless a logger was supplied), dumps every
// resolved timeline, and panics when called from a goroutine other than the
// one that enabled debug mode.
func (r *Runner) SetDebugMode(enabled bool) {
	r.debug = enabled
	if !enabled {
		r.owner = 0
		return
	}
	r.owner = goid.Get()
	if !r.customLogger {
		r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// debugCheckOwner panics when the runner is used off its owning goroutine.
func (r *Runner) debugCheckOwner(op string) {
	if !r.debug {
		return
	}
	if gid := goid.Get(); gid != r.owner {
		panic(fmt.Sprintf("fluid debug: Runner.%s called from goroutine %d, owner is %d", op, gid, r.owner))
	}
}

// debugDumpTimeline logs the resolved tree at debug level.
func (r *Runner) debugDumpTimeline(tl *Timeline) {
	if !r.debug {
		return
	}
	var b strings.Builder
	_ = tl.Dump(&b)
	r.logger.Debug("timeline resolved", "duration", tl.Duration, "tree", b.String())
}
