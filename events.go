package fluid

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies runner lifecycle events.
type EventType uint8

const (
	EventBatchCommitted EventType = iota
	EventBatchSkipped
	EventBatchRepeated
	EventAnimationBegin
	EventAnimationEnd
	EventAnimationCancelled
)

func (t EventType) String() string {
	switch t {
	case EventBatchCommitted:
		return "batch_committed"
	case EventBatchSkipped:
		return "batch_skipped"
	case EventBatchRepeated:
		return "batch_repeated"
	case EventAnimationBegin:
		return "animation_begin"
	case EventAnimationEnd:
		return "animation_end"
	case EventAnimationCancelled:
		return "animation_cancelled"
	default:
		return "unknown"
	}
}

// AnimationEvent is emitted by the runner to its EventSink.
type AnimationEvent struct {
	Type    EventType
	BatchID uuid.UUID

	// Request fields are zero for batch events.
	RequestID int64
	ItemID    uint32
	Key       string
	Offset    time.Duration

	// Duration is the batch duration for batch events and the request
	// duration for animation events.
	Duration time.Duration
	// Requests is the number of requests in a batch event.
	Requests int
}

// EventSink receives runner events, e.g. to forward them into an ECS world
// or a metrics registry. Calls happen on the runner's goroutine.
type EventSink interface {
	EmitEvent(event AnimationEvent)
}

// EventSinks fans events out to several sinks.
type EventSinks []EventSink

// EmitEvent forwards event to every sink.
func (s EventSinks) EmitEvent(event AnimationEvent) {
	for _, sink := range s {
		sink.EmitEvent(event)
	}
}
