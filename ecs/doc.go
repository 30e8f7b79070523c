// Package ecs provides ECS adapters for fluid's runner events.
//
// The primary adapter is [NewDonburiSink], which bridges fluid animation
// events (batch committed, skipped or repeated, animation begin, end and
// cancel) into a [Donburi] world as typed events. Subscribe to
// [AnimationEventType] in your ECS systems to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	runner := fluid.NewRunner(fluid.WithEventSink(sink))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
