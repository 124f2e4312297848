// Package observability assembles the vendor adapters (zap, prometheus,
// opentelemetry) behind the ports in internal/observability.
package observability

import (
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
)

// Provider is the concrete observability.Observability handed to use cases,
// workers and the HTTP layer.
type Provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics *instruments
}

type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *instruments) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

// New assembles a Provider backed by the supplied tracer, logger, and metric
// instruments. Missing parts fall back to no-ops; unknown metric keys resolve
// to instruments that drop observations.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) *Provider {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &instruments{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		if v != nil {
			m.counters[k] = v
		}
	}
	for k, v := range histograms {
		if v != nil {
			m.histograms[k] = v
		}
	}

	return &Provider{tracer: tracer, logger: logger, metrics: m}
}

// WithLogger returns a copy sharing tracer and metrics but logging through l.
func (p *Provider) WithLogger(l observability.Logger) *Provider {
	if l == nil {
		return p
	}
	clone := *p
	clone.logger = l
	return &clone
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p.metrics }
