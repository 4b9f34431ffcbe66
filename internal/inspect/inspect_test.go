package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/dynlib"
	"github.com/enginecore/enginecore/internal/engine"
	"github.com/enginecore/enginecore/internal/module"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := conf.Default()
	cfg.FrameInterval = 0
	cfg.Services["main"] = conf.Backend{Mode: conf.ModeNone}
	e, err := engine.New(engine.Options{
		Name:   "inspect",
		Config: &cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Loader: dynlib.NewStaticLoader(),
	})
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)
	return e
}

func get(t *testing.T, h http.Handler, path string, data any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if data != nil && rec.Code == http.StatusOK {
		var body struct {
			Status string          `json:"status"`
			Data   json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		require.NoError(t, json.Unmarshal(body.Data, data))
	}
	return rec.Code
}

func TestModules(t *testing.T) {
	r := NewRouter(startedEngine(t))

	var mods []module.Info
	require.Equal(t, http.StatusOK, get(t, r, "/api/modules", &mods))
	require.Len(t, mods, 8)
	for _, m := range mods {
		assert.Equal(t, "succeeded", m.Status, m.ID)
		if m.ID == "Main" {
			assert.Contains(t, m.Dependencies, module.ID("Display"))
			assert.Equal(t, []module.ID{"Joystick"}, m.Optional)
		}
	}
}

func TestServices(t *testing.T) {
	r := NewRouter(startedEngine(t))

	var tables []service.TableInfo
	require.Equal(t, http.StatusOK, get(t, r, "/api/services", &tables))
	assert.Len(t, tables, 7)

	var display service.TableInfo
	require.Equal(t, http.StatusOK, get(t, r, "/api/services/display", &display))
	require.NotEmpty(t, display.Slots)
	for _, s := range display.Slots {
		assert.True(t, s.Bound, s.Name)
		assert.Equal(t, "dummy", s.Owner)
	}

	var sound service.TableInfo
	require.Equal(t, http.StatusOK, get(t, r, "/api/services/Sound", &sound))
	for _, s := range sound.Slots {
		assert.False(t, s.Bound, s.Name)
	}

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/services/network", nil))
}

func TestBindings(t *testing.T) {
	r := NewRouter(startedEngine(t))

	var all []binder.Info
	require.Equal(t, http.StatusOK, get(t, r, "/api/bindings", &all))
	assert.Len(t, all, 5)

	var physics []binder.Info
	require.Equal(t, http.StatusOK, get(t, r, "/api/bindings?service=physics", &physics))
	require.Len(t, physics, 1)
	assert.Equal(t, "embedded", physics[0].Mode)
	assert.True(t, physics[0].Current)
}

func TestMetricsCountStubCalls(t *testing.T) {
	e := startedEngine(t)
	r := NewRouter(e)
	e.Sound().Play(7)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `engine_stub_invocations_total{service="Sound",slot="Play"} 1`)
	assert.Contains(t, body, "engine_module_events_total")
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer("127.0.0.1:0", startedEngine(t))
	require.NoError(t, s.Start())

	res, err := http.Get("http://" + s.Addr() + "/api/version")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.Contains(string(body), `"engine":"inspect"`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
