// Package diag is the diagnostics sink of an engine instance. It receives
// stub invocations and bind/unbind and module lifecycle events, writes them
// to slog, republishes them on a per-engine gookit/event manager and counts
// them in a per-engine Prometheus registry.
package diag

import (
	"fmt"
	"log/slog"

	"github.com/enginecore/enginecore/internal/eventType"
	"github.com/gookit/event"
	"github.com/prometheus/client_golang/prometheus"
)

// StubCall describes one call that reached a default stub.
type StubCall struct {
	Service string
	Slot    string
	File    string
	Line    int
}

func (c StubCall) String() string {
	return fmt.Sprintf("%s.%s() called from %s:%d before any backend bound it", c.Service, c.Slot, c.File, c.Line)
}

// Reporter is what the registry, the service tables and the binder need from
// a diagnostics collaborator.
type Reporter interface {
	StubInvoked(c StubCall)
	Lifecycle(name string, fields map[string]any)
}

type Options struct {
	Name     string
	Logger   *slog.Logger
	Events   *event.Manager
	Registry *prometheus.Registry
}

type Diagnostics struct {
	logger  *slog.Logger
	events  *event.Manager
	reg     *prometheus.Registry
	metrics *metrics
}

func New(opts Options) *Diagnostics {
	if opts.Name == "" {
		opts.Name = "engine"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = event.NewManager(opts.Name)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	return &Diagnostics{
		logger:  opts.Logger,
		events:  opts.Events,
		reg:     opts.Registry,
		metrics: newMetrics(opts.Registry),
	}
}

func (d *Diagnostics) StubInvoked(c StubCall) {
	d.metrics.stubCalls.WithLabelValues(c.Service, c.Slot).Inc()
	d.logger.Warn("Core function called before being bound.",
		slog.String("_group", "plugin"),
		slog.String("slot", c.Service+"."+c.Slot),
		slog.String("caller", fmt.Sprintf("%s:%d", c.File, c.Line)))
	d.fire(eventType.StubInvoked, event.M{
		"service": c.Service,
		"slot":    c.Slot,
		"file":    c.File,
		"line":    c.Line,
	})
}

func (d *Diagnostics) Lifecycle(name string, fields map[string]any) {
	d.metrics.observe(name, fields)

	attrs := make([]any, 0, len(fields)+1)
	attrs = append(attrs, slog.String("event", name))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	switch name {
	case eventType.ModuleInitFailed, eventType.BackendBindFailed, eventType.BackendOverridden:
		d.logger.Warn("Lifecycle event.", attrs...)
	case eventType.BackendBound, eventType.BackendUnbound, eventType.EngineStarted, eventType.EngineStopped:
		d.logger.Info("Lifecycle event.", attrs...)
	default:
		d.logger.Debug("Lifecycle event.", attrs...)
	}
	d.fire(name, event.M(fields))
}

// On subscribes fn to one event name, or to every event with event.Wildcard.
func (d *Diagnostics) On(name string, fn func(e event.Event) error) {
	d.events.On(name, event.ListenerFunc(fn))
}

func (d *Diagnostics) Events() *event.Manager { return d.events }

func (d *Diagnostics) Registry() *prometheus.Registry { return d.reg }

func (d *Diagnostics) Logger() *slog.Logger { return d.logger }

func (d *Diagnostics) fire(name string, m event.M) {
	if err, _ := d.events.Fire(name, m); err != nil {
		d.logger.Error("Diagnostics listener failed.", slog.String("event", name), slog.Any("error", err))
	}
}

// Nop discards everything. It is the reporter used when none is configured.
type Nop struct{}

func (Nop) StubInvoked(StubCall) {}
func (Nop) Lifecycle(string, map[string]any) {}
