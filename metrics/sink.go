// Package metrics exports fluid runner events as Prometheus metrics.
package metrics

import (
	"github.com/phanxgames/fluid"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is a fluid.EventSink that counts runner events and records batch
// and animation durations.
type Sink struct {
	events    *prometheus.CounterVec
	batches   prometheus.Histogram
	animation *prometheus.HistogramVec
	requests  prometheus.Histogram
}

var _ fluid.EventSink = (*Sink)(nil)

// NewSink creates a sink and registers its collectors with reg. A nil reg
// uses the default registerer.
func NewSink(reg prometheus.Registerer) (*Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &Sink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluid_events_total",
				Help: "Runner events by type",
			},
			[]string{"type"},
		),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fluid_batch_duration_seconds",
			Help:    "Resolved duration of committed batches",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		animation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fluid_animation_duration_seconds",
				Help:    "Scheduled duration of finished animations by property",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
			[]string{"key"},
		),
		requests: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fluid_batch_requests",
			Help:    "Requests scheduled per committed batch",
			Buckets: prometheus.LinearBuckets(1, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{s.events, s.batches, s.animation, s.requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNewSink is like NewSink but panics on registration errors.
func MustNewSink(reg prometheus.Registerer) *Sink {
	s, err := NewSink(reg)
	if err != nil {
		panic(err)
	}
	return s
}

// EmitEvent records e.
func (s *Sink) EmitEvent(e fluid.AnimationEvent) {
	s.events.WithLabelValues(e.Type.String()).Inc()
	switch e.Type {
	case fluid.EventBatchCommitted:
		s.batches.Observe(e.Duration.Seconds())
		s.requests.Observe(float64(e.Requests))
	case fluid.EventAnimationEnd:
		s.animation.WithLabelValues(e.Key).Observe(e.Duration.Seconds())
	}
}
