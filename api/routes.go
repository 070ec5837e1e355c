package api

import (
	"net/http"
	"strings"

	"github.com/go-macaron/binding"
	"github.com/grafana/hitcounter/api/middleware"
	"github.com/grafana/hitcounter/api/models"
	"github.com/grafana/hitcounter/series"
	"github.com/raintank/gziper"
	"gopkg.in/macaron.v1"
)

var knownPaths = map[string]struct{}{
	"/status":        {},
	"/secure-status": {},
	"/metrics":       {},
	"/health":        {},
}

func isKnownPath(p string) bool {
	if strings.HasPrefix(p, pprofPrefix) {
		return isProfilePath(p)
	}
	_, ok := knownPaths[p]
	return ok
}

func (s *Server) RegisterRoutes() {
	r := s.Macaron
	// before the wrappers below, so they see uncompressed bodies
	if s.useGzip {
		r.Use(gziper.Gziper())
	}
	r.Use(middleware.Tracer(s.Tracer))
	r.Use(middleware.ContextMiddleware(s.Mode))
	r.Use(middleware.Logger())
	r.Use(middleware.RequestStats(isKnownPath))
	r.Use(middleware.CorsHandler())
	r.NotFound(middleware.NotFound)

	bind := binding.Bind

	r.Get("/status", middleware.RequireSeries(series.Status), s.status)
	r.Get("/secure-status", middleware.RequireSeries(series.SecureStatus), s.secureStatus)
	r.Get("/metrics", bind(models.MetricsQuery{}), s.metrics)
	r.Get("/health", s.health)

	r.Get("/debug/pprof/block", blockHandler)
	r.Get("/debug/pprof/mutex", mutexHandler)
	r.Any("/debug/pprof/*", pprofHandler)

	r.Options("/*", func(ctx *macaron.Context) {
		ctx.Resp.WriteHeader(http.StatusOK)
	})
}
