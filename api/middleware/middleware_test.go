package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grafana/hitcounter/mode"
	"github.com/grafana/hitcounter/series"
	"github.com/opentracing/opentracing-go/mocktracer"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/macaron.v1"
)

func newTestMacaron(m mode.Mode, reached *bool) *macaron.Macaron {
	r := macaron.New()
	r.Use(ContextMiddleware(m))
	r.NotFound(NotFound)
	r.Get("/status", RequireSeries(series.Status), func(c *Context) {
		*reached = true
		c.Resp.WriteHeader(200)
		c.Resp.Write([]byte("ok"))
	})
	return r
}

func TestRequireSeries(t *testing.T) {
	Convey("When the mode serves the series", t, func() {
		var reached bool
		r := newTestMacaron(mode.Public, &reached)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/status", nil))
		So(w.Code, ShouldEqual, http.StatusOK)
		So(reached, ShouldBeTrue)
	})
	Convey("When the mode does not serve the series", t, func() {
		var reached bool
		r := newTestMacaron(mode.Private, &reached)
		gated := httptest.NewRecorder()
		r.ServeHTTP(gated, httptest.NewRequest("GET", "/status", nil))
		So(reached, ShouldBeFalse)
		So(gated.Code, ShouldEqual, http.StatusNotFound)
		So(gated.Body.String(), ShouldEqual, `{"error":"Not found"}`)

		Convey("it should look the same as a path that doesn't exist", func() {
			missing := httptest.NewRecorder()
			r.ServeHTTP(missing, httptest.NewRequest("GET", "/does-not-exist", nil))
			So(missing.Code, ShouldEqual, gated.Code)
			So(missing.Body.String(), ShouldEqual, gated.Body.String())
			So(missing.Header().Get("content-type"), ShouldEqual, gated.Header().Get("content-type"))
		})
	})
}

func TestTracer(t *testing.T) {
	Convey("When tracing requests", t, func() {
		tracer := mocktracer.New()
		r := macaron.New()
		r.Use(Tracer(tracer))
		r.Get("/health", func(c *macaron.Context) {
			c.Resp.WriteHeader(200)
			c.Resp.Write([]byte("healthy"))
		})
		r.Get("/broken", func(c *macaron.Context) {
			c.Resp.WriteHeader(500)
			c.Resp.Write([]byte("boom"))
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/broken", nil))

		spans := tracer.FinishedSpans()
		So(spans, ShouldHaveLength, 2)
		So(spans[0].OperationName, ShouldEqual, "HTTP GET health")
		So(spans[0].Tag("component"), ShouldEqual, "hitcounter/api")
		So(spans[0].Tag("http.status_code"), ShouldEqual, uint16(200))
		So(spans[0].Tag("error"), ShouldBeNil)
		So(spans[1].OperationName, ShouldEqual, "HTTP GET broken")
		So(spans[1].Tag("error"), ShouldEqual, true)
	})
}

func TestPathSlug(t *testing.T) {
	tests := map[string]string{
		"/":               "root",
		"/status":         "status",
		"/secure-status/": "secure-status",
		"/debug/pprof/":   "debug_pprof",
	}
	for in, exp := range tests {
		if got := pathSlug(in); got != exp {
			t.Errorf("pathSlug(%q): expected %q, got %q", in, exp, got)
		}
	}
}
