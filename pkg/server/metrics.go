package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects pipeline gauges: how many requests are currently running
// past the async budget (§4.9). Grounded on the same
// core/system_health_logging.go registry+field idiom as module.Metrics.
type Metrics struct {
	registry        *prometheus.Registry
	asyncQueueDepth prometheus.Gauge
}

// NewMetrics builds a Metrics with its own registry, ready to attach to a
// Server via WithMetrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		asyncQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "manynet_server_async_queue_depth",
			Help: "Number of requests currently running past the async dispatch budget.",
		}),
	}
	reg.MustRegister(m.asyncQueueDepth)
	return m
}

// Registry exposes the underlying registry, e.g. for a promhttp handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
