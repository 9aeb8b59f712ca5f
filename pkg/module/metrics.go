package module

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synnergy-chain/manynet/pkg/message"
)

// Metrics collects dispatcher counters: total requests routed and failures
// broken down by error code. Grounded on the teacher's
// core/system_health_logging.go HealthLogger, which pairs a dedicated
// *prometheus.Registry with named Counter/Gauge fields registered together
// via a single MustRegister call, rather than the default global registry.
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal prometheus.Counter
	errorsByCode  *prometheus.CounterVec
}

// NewMetrics builds a Metrics with its own registry, ready to attach to a
// Dispatcher via WithMetrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manynet_dispatcher_requests_total",
			Help: "Total number of requests routed through the dispatcher.",
		}),
		errorsByCode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manynet_dispatcher_errors_total",
			Help: "Total number of dispatch failures, labeled by error code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.requestsTotal, m.errorsByCode)
	return m
}

// Registry exposes the underlying registry, e.g. for a promhttp handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// observe records the outcome of a single Dispatch call.
func (m *Metrics) observe(resp message.Response) {
	m.requestsTotal.Inc()
	if resp.Err != nil {
		m.errorsByCode.WithLabelValues(strconv.FormatInt(int64(resp.Err.Code), 10)).Inc()
	}
}
