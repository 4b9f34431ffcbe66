package diag

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/enginecore/enginecore/internal/eventType"
	"github.com/gookit/event"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiag(t *testing.T) (*Diagnostics, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	d := New(Options{
		Name:   t.Name(),
		Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	return d, buf
}

func TestStubInvoked(t *testing.T) {
	d, buf := newDiag(t)

	var got event.M
	d.On(eventType.StubInvoked, func(e event.Event) error {
		got = e.Data()
		return nil
	})

	call := StubCall{Service: "Display", Slot: "Swap", File: "game.go", Line: 42}
	d.StubInvoked(call)
	d.StubInvoked(call)

	assert.Contains(t, buf.String(), "slot=Display.Swap")
	assert.Contains(t, buf.String(), "caller=game.go:42")
	assert.Equal(t, "Swap", got["slot"])
	assert.Equal(t, 42, got["line"])
	assert.Equal(t, 2.0, testutil.ToFloat64(d.metrics.stubCalls.WithLabelValues("Display", "Swap")))
	assert.Contains(t, call.String(), "Display.Swap()")
}

func TestLifecycleCountsAndRepublishes(t *testing.T) {
	d, buf := newDiag(t)

	var names []string
	d.On(event.Wildcard, func(e event.Event) error {
		names = append(names, e.Name())
		return nil
	})

	d.Lifecycle(eventType.ModuleInitSucceeded, map[string]any{"module": "Display"})
	d.Lifecycle(eventType.BackendBound, map[string]any{"service": "Display", "mode": "dynamic"})
	d.Lifecycle(eventType.BackendBindFailed, map[string]any{"service": "Sound", "error": "missing"})

	assert.Equal(t, []string{eventType.ModuleInitSucceeded, eventType.BackendBound, eventType.BackendBindFailed}, names)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.moduleEvents.WithLabelValues("Display", eventType.ModuleInitSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.backendEvents.WithLabelValues("Sound", eventType.BackendBindFailed)))
	assert.Contains(t, buf.String(), "level=WARN")

	families, err := d.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, _ := newDiag(t)
	b, _ := newDiag(t)
	fired := 0
	b.On(eventType.StubInvoked, func(event.Event) error { fired++; return nil })

	a.StubInvoked(StubCall{Service: "Sound", Slot: "Play"})
	assert.Zero(t, fired)
	assert.Zero(t, testutil.ToFloat64(b.metrics.stubCalls.WithLabelValues("Sound", "Play")))
}
