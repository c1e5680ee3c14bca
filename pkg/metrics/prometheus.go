// Package metrics provides a Prometheus recorder for props kernels.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "props"

// Collector holds the Prometheus series a kernel reports through
// props.WithMetrics.
type Collector struct {
	// Apply metrics
	ApplyTotal    *prometheus.CounterVec
	ApplyDuration *prometheus.HistogramVec
	Fallbacks     *prometheus.CounterVec

	// Watch metrics
	Dispatches *prometheus.CounterVec

	// Schema metrics
	Defines *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ApplyTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "apply_total",
				Help:      "Total number of apply passes by outcome",
			},
			[]string{"component", "outcome"},
		),
		ApplyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "apply_duration_seconds",
				Help:      "Apply pass duration in seconds, including watcher dispatch",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"component", "outcome"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total number of fields resolved from a fallback source",
			},
			[]string{"component"},
		),
		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_dispatch_total",
				Help:      "Total number of watcher invocations by registry",
			},
			[]string{"component", "registry"},
		),
		Defines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "define_total",
				Help:      "Total number of schema definitions by outcome",
			},
			[]string{"component", "outcome"},
		),
	}
}

func (c *Collector) ObserveApply(component, outcome string, elapsed time.Duration) {
	c.ApplyTotal.WithLabelValues(component, outcome).Inc()
	c.ApplyDuration.WithLabelValues(component, outcome).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveFallbacks(component string, count int) {
	if count <= 0 {
		return
	}
	c.Fallbacks.WithLabelValues(component).Add(float64(count))
}

func (c *Collector) ObserveDispatch(component, registry string) {
	c.Dispatches.WithLabelValues(component, registry).Inc()
}

func (c *Collector) ObserveDefine(component, outcome string) {
	c.Defines.WithLabelValues(component, outcome).Inc()
}
