// Package metrics wires the trainer's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the training collectors behind a private registry so
// the trainer never touches the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	PassesTotal   prometheus.Counter
	ExamplesTotal prometheus.Counter
	PassDuration  prometheus.Histogram
	DualityGap    prometheus.Gauge
}

// New builds the registry with Go runtime and process collectors plus
// the training collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdca_training_passes_total",
			Help: "Total number of completed training passes",
		}),
		ExamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdca_training_examples_total",
			Help: "Total number of example updates applied",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdca_training_pass_duration_seconds",
			Help:    "Wall time per training pass",
			Buckets: prometheus.DefBuckets,
		}),
		DualityGap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdca_approximate_duality_gap",
			Help: "Approximate duality gap after the most recent pass",
		}),
	}
	reg.MustRegister(m.PassesTotal, m.ExamplesTotal, m.PassDuration, m.DualityGap)
	return m
}

// ObservePass records one completed training pass.
func (m *Metrics) ObservePass(examples int, gap float64, elapsed time.Duration) {
	m.PassesTotal.Inc()
	m.ExamplesTotal.Add(float64(examples))
	m.PassDuration.Observe(elapsed.Seconds())
	m.DualityGap.Set(gap)
}

// Handler serves the registry for the optional /metrics listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
