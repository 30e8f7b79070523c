// Package fluid animates a tree of UI elements from declared states.
//
// Elements report named states; each element's [Configuration] declares
// rules keyed by state name. When states change, fluid works out which
// rules fire, turns them into animation requests, and resolves one
// consistent timeline for the whole tree before playing it.
//
// # Quick start
//
// The simplest way to get started is a [Stage], which owns an item tree, a
// [Runner] and the current states of every item:
//
//	root := fluid.NewItem("root")
//	box := fluid.NewItem("box")
//	box.Config.When = []fluid.Rule{
//		&fluid.StyleRule{
//			RuleBase: fluid.RuleBase{State: "active"},
//			Style:    map[string]float64{"x": 200, "alpha": 0.5},
//		},
//	}
//	root.AddChild(box)
//
//	stage := fluid.NewStage(root)
//	stage.Runner().SignalIdle() // first paint done
//	stage.SetState(ctx, "box", "active", true)
//	for stage.Runner().Active() {
//		stage.Update(ctx, time.Second/60)
//	}
//
// The host reads each property through [Item.Value] every frame.
//
// # Rules
//
// Rules live in three lists. When rules apply while their state is active
// and undo themselves when it goes away. OnEnter and OnExit rules play once
// when their state appears or disappears, and may not repeat forever.
// Rule shapes are closed: [StyleRule], [InterpolationRule], [ValueRule],
// [FactoryRule] and [SharedRule].
//
// Removed states are resolved before added and changed ones, and each rule
// fires at most once per pass ([MatchRules]).
//
// # Timelines
//
// Requests collected in one render pass ([AnimationContext]) are committed
// together. [Resolve] mirrors the element tree into an animation tree,
// waits for pending layout metrics, drops subtrees outside the viewport,
// composes durations bottom-up (parallel, sequential or staggered, see
// [ChildAnimation]) and assigns offsets top-down. Durations may be the
// sentinels [AsGroup] (take the children's duration) or [AsContext] (take
// the whole timeline's duration).
//
// # Runner
//
// The [Runner] plays timelines on a per-batch [Driver] or on the shared
// driver of an active [DriverContext]. A newer animation of the same
// property cancels the older one. Requests with Loop, Flip or Yoyo are
// re-committed as a new batch once every repeating member of their batch
// finished.
//
// Animations are eased with [gween] functions; springs are converted to an
// equivalent duration and sampled easing before scheduling.
//
// # Debug mode
//
// [Stage.SetDebugMode] enables panics on disposed-item access, tree dumps
// for every resolved timeline, and a check that the runner is only used
// from its owning goroutine.
//
// # Adapters
//
// Subpackages connect the engine to hosts: fluid/ebitenhost runs a stage
// inside an [Ebitengine] game, fluid/ecs forwards runner events into a
// [Donburi] world, fluid/metrics exports them to Prometheus, and
// fluid/scenefile loads stages from YAML.
//
// The fluid command (cmd/fluid) resolves, plays and serves scene files
// from the terminal.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package fluid
