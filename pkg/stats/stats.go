// Package stats instruments a pipeline with Prometheus metrics through
// global extra handlers: per-component execution counts and latencies, plus
// a turn counter.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/pipeline"
)

// Collector holds the pipeline metrics and the in-flight start times.
type Collector struct {
	turns     prometheus.Counter
	states    *prometheus.CounterVec
	durations *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "turns_total",
			Help:      "Number of dialog turns processed.",
		}),
		states: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "component_executions_total",
			Help:      "Component executions by final state.",
		}, []string{"component", "state"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "component_duration_seconds",
			Help:      "Component execution time from before to after hook.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		starts: make(map[string]time.Time),
	}

	for _, col := range []prometheus.Collector{c.turns, c.states, c.durations} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Attach wires the collector into the pipeline: timing hooks on every
// component the filter admits, and the turn counter on the root group.
func (c *Collector) Attach(p *pipeline.Pipeline, opts ...pipeline.GlobalHandlerOption) {
	p.AddGlobalHandler(pipeline.StageBefore, c.BeforeHandler(), opts...)
	p.AddGlobalHandler(pipeline.StageAfter, c.AfterHandler(), opts...)
	p.AfterAll(func(context.Context, *domain.Context, *pipeline.Pipeline, pipeline.RuntimeInfo) error {
		c.turns.Inc()
		return nil
	})
}

// BeforeHandler records the component's start time.
func (c *Collector) BeforeHandler() pipeline.ExtraHandlerFunc {
	return func(_ context.Context, dc *domain.Context, _ *pipeline.Pipeline, info pipeline.RuntimeInfo) error {
		c.mu.Lock()
		c.starts[dc.ID+"|"+info.Path] = time.Now()
		c.mu.Unlock()
		return nil
	}
}

// AfterHandler observes the component's duration and final state.
func (c *Collector) AfterHandler() pipeline.ExtraHandlerFunc {
	return func(_ context.Context, dc *domain.Context, _ *pipeline.Pipeline, info pipeline.RuntimeInfo) error {
		key := dc.ID + "|" + info.Path
		c.mu.Lock()
		start, ok := c.starts[key]
		delete(c.starts, key)
		c.mu.Unlock()

		if ok {
			c.durations.WithLabelValues(info.Path).Observe(time.Since(start).Seconds())
		}
		c.states.WithLabelValues(info.Path, string(info.States[info.Path])).Inc()
		return nil
	}
}
