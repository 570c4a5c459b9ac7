// Package metrics exposes prometheus collectors for update passes.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oomadj"

// Pass kinds used as the kind label.
const (
	KindFull    = "full"
	KindPartial = "partial"
)

// Collectors groups the pass metrics.
type Collectors struct {
	Passes       *prometheus.CounterVec
	PassDuration *prometheus.HistogramVec
	Changed      prometheus.Counter
	Edges        prometheus.Counter
	Deltas       prometheus.Counter
	Processes    prometheus.Gauge
}

// New creates unregistered collectors.
func New() *Collectors {
	return &Collectors{
		Passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pass_total",
				Help:      "Update passes run, by kind",
			},
			[]string{"kind"},
		),
		PassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Update pass duration in seconds, by kind",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
			},
			[]string{"kind"},
		),
		Changed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_changed_total",
			Help:      "Processes whose applied importance changed",
		}),
		Edges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_evaluated_total",
			Help:      "Connections evaluated by update passes",
		}),
		Deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_published_total",
			Help:      "Process deltas published to observers",
		}),
		Processes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes",
			Help:      "Processes currently registered",
		}),
	}
}

// Register registers every collector. Collectors already registered with
// registerer are accepted.
func (c *Collectors) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{c.Passes, c.PassDuration, c.Changed, c.Edges, c.Deltas, c.Processes} {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePass records one completed pass.
func (c *Collectors) ObservePass(kind string, elapsed time.Duration, changed, edges int) {
	if c == nil {
		return
	}
	c.Passes.WithLabelValues(kind).Inc()
	c.PassDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	c.Changed.Add(float64(changed))
	c.Edges.Add(float64(edges))
}

// ObserveDeltas records published deltas.
func (c *Collectors) ObserveDeltas(count int) {
	if c == nil || count == 0 {
		return
	}
	c.Deltas.Add(float64(count))
}

// SetProcesses records the registered process count.
func (c *Collectors) SetProcesses(count int) {
	if c == nil {
		return
	}
	c.Processes.Set(float64(count))
}
