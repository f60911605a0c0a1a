// Package metrics exports potok node events as Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OJezu/potok/pkg/potok"
)

// Collector is a potok.Observer that counts node events. Attach it with
// potok.WithObserver; one Collector can serve many nodes.
type Collector struct {
	entered   *prometheus.CounterVec
	pushed    *prometheus.CounterVec
	settled   *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	forwarded *prometheus.CounterVec
	ended     *prometheus.CounterVec
	drain     *prometheus.HistogramVec

	mu      sync.Mutex
	closing map[uuid.UUID]time.Time
}

// NewCollector creates the metrics and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "node",
				Name:      name,
				Help:      help,
			},
			append([]string{"node"}, labels...),
		)
	}

	c := &Collector{
		entered:   counter("entered_total", "Units accepted by Enter."),
		pushed:    counter("pushed_total", "Outcomes added by Push and PushFinal."),
		settled:   counter("settled_total", "Units settled by the per-task handlers.", "outcome"),
		dropped:   counter("dropped_total", "Null outcomes dropped from the final list."),
		forwarded: counter("forwarded_total", "Outcomes delivered to chained receivers."),
		ended:     counter("ended_total", "Nodes that ended.", "outcome"),
		drain: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "node",
				Name:      "drain_duration_seconds",
				Help:      "Time from End until the node ended.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		closing: make(map[uuid.UUID]time.Time),
	}

	for _, col := range []prometheus.Collector{
		c.entered, c.pushed, c.settled, c.dropped, c.forwarded, c.ended, c.drain,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) HandleEvent(e potok.Event) {
	switch e.Type {
	case potok.EventEntered:
		c.entered.WithLabelValues(e.Name).Inc()
	case potok.EventPushed:
		c.pushed.WithLabelValues(e.Name).Inc()
	case potok.EventSettled:
		c.settled.WithLabelValues(e.Name, e.Outcome.String()).Inc()
	case potok.EventDropped:
		c.dropped.WithLabelValues(e.Name).Inc()
	case potok.EventForwarded:
		c.forwarded.WithLabelValues(e.Name).Inc()
	case potok.EventStateChanged:
		if e.State == potok.StateClosing {
			c.mu.Lock()
			c.closing[e.Node] = e.Time
			c.mu.Unlock()
		}
	case potok.EventEnded:
		c.ended.WithLabelValues(e.Name, e.Outcome.String()).Inc()
		c.mu.Lock()
		start, ok := c.closing[e.Node]
		delete(c.closing, e.Node)
		c.mu.Unlock()
		if ok {
			c.drain.WithLabelValues(e.Name).Observe(e.Time.Sub(start).Seconds())
		}
	}
}

var _ potok.Observer = (*Collector)(nil)
