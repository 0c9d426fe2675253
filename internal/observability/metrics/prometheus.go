// Package metrics implements ports.MetricsCollector on top of
// prometheus/client_golang, lazily creating a CounterVec/GaugeVec/
// HistogramVec per metric name the first time it is observed with a
// given label set and reusing it afterward.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reconctl/reconctl/internal/ports"
)

const namespace = "reconctl"

// PrometheusCollector implements ports.MetricsCollector, registering
// every metric with the supplied registry the first time it is used.
type PrometheusCollector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// New constructs a PrometheusCollector registered against registry. A
// nil registry falls back to prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *PrometheusCollector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &PrometheusCollector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IncCounter implements ports.MetricsCollector.
func (c *PrometheusCollector) IncCounter(_ context.Context, name string, labels map[string]string) {
	vec := c.counterVec(name, labels)
	vec.With(prometheus.Labels(labels)).Inc()
}

// SetGauge implements ports.MetricsCollector.
func (c *PrometheusCollector) SetGauge(_ context.Context, name string, value float64, labels map[string]string) {
	vec := c.gaugeVec(name, labels)
	vec.With(prometheus.Labels(labels)).Set(value)
}

// ObserveHistogram implements ports.MetricsCollector.
func (c *PrometheusCollector) ObserveHistogram(_ context.Context, name string, value float64, labels map[string]string) {
	vec := c.histogramVec(name, labels)
	vec.With(prometheus.Labels(labels)).Observe(value)
}

func (c *PrometheusCollector) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.counters[name]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      fmt.Sprintf("reconctl counter %s", name),
	}, labelNames(labels))
	c.registry.MustRegister(vec)
	c.counters[name] = vec
	return vec
}

func (c *PrometheusCollector) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.gauges[name]; ok {
		return vec
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      fmt.Sprintf("reconctl gauge %s", name),
	}, labelNames(labels))
	c.registry.MustRegister(vec)
	c.gauges[name] = vec
	return vec
}

func (c *PrometheusCollector) histogramVec(name string, labels map[string]string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.histograms[name]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      fmt.Sprintf("reconctl histogram %s", name),
		Buckets:   prometheus.DefBuckets,
	}, labelNames(labels))
	c.registry.MustRegister(vec)
	c.histograms[name] = vec
	return vec
}

var _ ports.MetricsCollector = (*PrometheusCollector)(nil)
