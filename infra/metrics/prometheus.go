// Package metrics provides the prometheus implementation of the metrics
// sink.
package metrics

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/velohr/settlement/pkg/metrics"
)

// Prom implements metrics.Sink on prometheus counters. Counters are
// registered lazily per (name, tag-key-set); a registration failure is
// logged and the increment dropped, never surfaced to the caller.
type Prom struct {
	registerer prometheus.Registerer
	logger     *slog.Logger

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
}

// NewProm creates a prometheus sink registering into reg.
func NewProm(reg prometheus.Registerer, logger *slog.Logger) *Prom {
	return &Prom{
		registerer: reg,
		logger:     logger.With("sink", "prometheus"),
		counters:   make(map[string]*prometheus.CounterVec),
	}
}

// Inc implements metrics.Sink.
func (p *Prom) Inc(name string, tags map[string]string) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p.mu.Lock()
	cv, ok := p.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, keys)
		if err := p.registerer.Register(cv); err != nil {
			p.mu.Unlock()
			p.logger.Warn("counter registration failed", "name", name, "error", err)
			return
		}
		p.counters[name] = cv
	}
	p.mu.Unlock()

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = tags[k]
	}
	counter, err := cv.GetMetricWithLabelValues(values...)
	if err != nil {
		p.logger.Warn("counter lookup failed", "name", name, "error", err)
		return
	}
	counter.Inc()
}

// Ensure Prom implements the Sink interface.
var _ metrics.Sink = (*Prom)(nil)
