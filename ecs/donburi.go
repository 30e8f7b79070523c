package ecs

import (
	"github.com/phanxgames/fluid"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// AnimationEventType is the Donburi event type for fluid runner events.
// Subscribe to this in your ECS systems to react to animations starting
// and finishing.
var AnimationEventType = events.NewEventType[fluid.AnimationEvent]()

type donburiSink struct {
	world donburi.World
	only  map[fluid.EventType]bool
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Events are
// published to AnimationEventType and can be consumed with events.Subscribe
// and ProcessEvents. With types given, only those event types are
// forwarded.
func NewDonburiSink(world donburi.World, types ...fluid.EventType) fluid.EventSink {
	s := &donburiSink{world: world}
	if len(types) > 0 {
		s.only = make(map[fluid.EventType]bool, len(types))
		for _, t := range types {
			s.only[t] = true
		}
	}
	return s
}

func (s *donburiSink) EmitEvent(event fluid.AnimationEvent) {
	if s.only != nil && !s.only[event.Type] {
		return
	}
	AnimationEventType.Publish(s.world, event)
}
