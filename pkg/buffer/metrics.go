package buffer

import (
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// storeMetrics holds Prometheus metrics for a store.
type storeMetrics struct {
	stored prometheus.Counter
	drops  prometheus.Counter
	queued prometheus.Gauge
	nodes  prometheus.Gauge
}

func newStoreMetrics(registry *metric.MetricsRegistry, prefix string) (*storeMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &storeMetrics{
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "tsclient",
			Subsystem:   "buffer",
			Name:        "stored_total",
			ConstLabels: labels,
			Help:        "Total number of events held for later delivery",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "tsclient",
			Subsystem:   "buffer",
			Name:        "drops_total",
			ConstLabels: labels,
			Help:        "Total number of events dropped due to overflow",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tsclient",
			Subsystem:   "buffer",
			Name:        "queued",
			ConstLabels: labels,
			Help:        "Current number of held events",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tsclient",
			Subsystem:   "buffer",
			Name:        "nodes",
			ConstLabels: labels,
			Help:        "Number of nodes with held events",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_stored", m.stored); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_drops", m.drops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_queued", m.queued); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_nodes", m.nodes); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *storeMetrics) update(queued, nodes int) {
	m.queued.Set(float64(queued))
	m.nodes.Set(float64(nodes))
}
