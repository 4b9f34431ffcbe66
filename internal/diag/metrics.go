package diag

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	stubCalls     *prometheus.CounterVec
	backendEvents *prometheus.CounterVec
	moduleEvents  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		stubCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "stub_invocations_total",
			Help:      "Calls that reached a default stub, by service and slot.",
		}, []string{"service", "slot"}),
		backendEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "backend_events_total",
			Help:      "Backend binder lifecycle events, by service.",
		}, []string{"service", "event"}),
		moduleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "module_events_total",
			Help:      "Module lifecycle events, by module.",
		}, []string{"module", "event"}),
	}
	reg.MustRegister(m.stubCalls, m.backendEvents, m.moduleEvents)
	return m
}

func (m *metrics) observe(name string, fields map[string]any) {
	if v, ok := fields["module"]; ok {
		m.moduleEvents.WithLabelValues(fmt.Sprint(v), name).Inc()
		return
	}
	if v, ok := fields["service"]; ok {
		m.backendEvents.WithLabelValues(fmt.Sprint(v), name).Inc()
	}
}
