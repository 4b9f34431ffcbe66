// Package inspect serves a read-only HTTP view of a running engine: its
// modules, service tables, backend bindings and Prometheus metrics.
package inspect

import (
	"net/http"
	"strings"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/engine"
	logutil "github.com/enginecore/enginecore/internal/log"
	"github.com/enginecore/enginecore/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(e *engine.Engine) *gin.Engine {
	r := gin.New()
	r.Use(logutil.GinLogger())
	r.Use(logutil.GinRecovery())

	api := r.Group("/api")
	api.GET("/version", func(c *gin.Context) {
		RespondSuccess(c, gin.H{
			"engine":  e.Name(),
			"version": version.CurrentVersion,
			"hash":    version.VersionHash,
		})
	})
	api.GET("/modules", func(c *gin.Context) {
		RespondSuccess(c, e.ModuleSnapshot())
	})
	api.GET("/services", func(c *gin.Context) {
		RespondSuccess(c, e.Services().Snapshot())
	})
	api.GET("/services/:id", func(c *gin.Context) {
		id := c.Param("id")
		for _, t := range e.Services().Snapshot() {
			if strings.EqualFold(string(t.Service), id) {
				RespondSuccess(c, t)
				return
			}
		}
		RespondError(c, http.StatusNotFound, "Unknown service "+id+".")
	})
	api.GET("/bindings", func(c *gin.Context) {
		RespondSuccess(c, bindingsOf(e.Binder(), c.Query("service")))
	})

	api.GET("/plugins", func(c *gin.Context) {
		libs, err := e.Binder().Available()
		if err != nil {
			RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		RespondSuccess(c, libs)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(e.Diagnostics().Registry(), promhttp.HandlerOpts{})))
	return r
}

func bindingsOf(b *binder.Binder, svc string) []binder.Info {
	all := b.Bindings()
	if svc == "" {
		return all
	}
	out := make([]binder.Info, 0, len(all))
	for _, in := range all {
		if strings.EqualFold(string(in.Service), svc) || containsFold(in.Services, svc) {
			out = append(out, in)
		}
	}
	return out
}

func containsFold(ids []string, id string) bool {
	for _, x := range ids {
		if strings.EqualFold(x, id) {
			return true
		}
	}
	return false
}

