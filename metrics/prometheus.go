package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink is a Sink backed by a dedicated *prometheus.Registry
// (rather than the global DefaultRegisterer, per the reference stack's
// prometheus.MustRegister(...) pattern) so that multiple Publisher or
// Outbox instances in the same process — or in the same test binary —
// never collide on metric registration.
type PrometheusSink struct {
	namespace string
	subsystem string

	registry *prometheus.Registry
	mu       sync.Mutex

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusSink constructs a PrometheusSink that namespaces every
// metric under namespace/subsystem, mirroring the reference stack's
// CounterOpts{Namespace, Subsystem, Name, Help} construction.
func NewPrometheusSink(namespace, subsystem string) *PrometheusSink {
	return &PrometheusSink{
		namespace:  namespace,
		subsystem:  subsystem,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the underlying registry, e.g. to expose it via an
// HTTP /metrics handler.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (s *PrometheusSink) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		s.registry.MustRegister(c)
		s.counters[name] = c
	}
	return c
}

func (s *PrometheusSink) histogramVec(name string, labels map[string]string) *prometheus.HistogramVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, labelNames(labels))
		s.registry.MustRegister(h)
		s.histograms[name] = h
	}
	return h
}

func (s *PrometheusSink) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		s.registry.MustRegister(g)
		s.gauges[name] = g
	}
	return g
}

// IncCounter increments the named counter, creating and registering it
// on first use.
func (s *PrometheusSink) IncCounter(name string, labels map[string]string) {
	s.counterVec(name, labels).With(prometheus.Labels(labels)).Inc()
}

// ObserveSeconds records a duration observation against the named
// histogram, creating and registering it on first use.
func (s *PrometheusSink) ObserveSeconds(name string, labels map[string]string, seconds float64) {
	s.histogramVec(name, labels).With(prometheus.Labels(labels)).Observe(seconds)
}

// SetGauge sets the named gauge, creating and registering it on first
// use.
func (s *PrometheusSink) SetGauge(name string, labels map[string]string, value float64) {
	s.gaugeVec(name, labels).With(prometheus.Labels(labels)).Set(value)
}
