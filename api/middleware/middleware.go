package middleware

import (
	"github.com/grafana/hitcounter/api/response"
	"github.com/grafana/hitcounter/errors"
	"github.com/grafana/hitcounter/mode"
	"github.com/grafana/hitcounter/series"
	"github.com/rs/cors"
	"gopkg.in/macaron.v1"
)

type Context struct {
	*macaron.Context
	Mode mode.Mode
}

// ContextMiddleware maps a *Context, carrying the mode the process runs in,
// for the handlers further down the chain.
func ContextMiddleware(m mode.Mode) macaron.Handler {
	return func(c *macaron.Context) {
		ctx := &Context{
			Context: c,
			Mode:    m,
		}
		c.Map(ctx)
	}
}

// ErrNotFound is what any path unknown in the running mode returns
var ErrNotFound = errors.NewNotFound("Not found")

// RequireSeries only lets requests through when the running mode serves id.
// Otherwise the request is answered exactly like one for an unregistered path.
func RequireSeries(id series.ID) macaron.Handler {
	return func(c *Context) {
		if !c.Mode.Allows(id) {
			response.Write(c.Resp, response.WrapError(ErrNotFound))
		}
	}
}

// NotFound is used for paths without a route
func NotFound(c *macaron.Context) {
	response.Write(c.Resp, response.WrapError(ErrNotFound))
}

func CorsHandler() macaron.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowCredentials: true,
	})
	return c.HandlerFunc
}
