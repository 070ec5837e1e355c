package middleware

import (
	"errors"
	"net/http"

	"github.com/grafana/hitcounter/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	jaeger "github.com/uber/jaeger-client-go"
	"gopkg.in/macaron.v1"
)

type TracingResponseWriter struct {
	macaron.ResponseWriter
	errBody []byte // the body in case it is an error
}

func (rw *TracingResponseWriter) Write(b []byte) (int, error) {
	if rw.ResponseWriter.Status() >= 400 {
		rw.errBody = make([]byte, len(b))
		copy(rw.errBody, b)
	}
	return rw.ResponseWriter.Write(b)
}

// Tracer returns a middleware that traces requests
func Tracer(tracer opentracing.Tracer) macaron.Handler {
	return func(macCtx *macaron.Context) {
		path := pathSlug(macCtx.Req.URL.Path)

		spanCtx, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(macCtx.Req.Header))
		span := tracer.StartSpan("HTTP "+macCtx.Req.Method+" "+path, ext.RPCServerOption(spanCtx))

		ext.HTTPMethod.Set(span, macCtx.Req.Method)
		ext.HTTPUrl.Set(span, macCtx.Req.URL.String())
		ext.Component.Set(span, "hitcounter/api")

		macCtx.Req = macaron.Request{Request: macCtx.Req.WithContext(opentracing.ContextWithSpan(macCtx.Req.Context(), span))}
		rw := &TracingResponseWriter{
			ResponseWriter: macCtx.Resp,
		}
		macCtx.Resp = rw
		macCtx.MapTo(macCtx.Resp, (*http.ResponseWriter)(nil))

		// only a real jaeger span has a trace id to hand out
		if spanCtx, ok := span.Context().(jaeger.SpanContext); ok {
			macCtx.Resp.Header().Set("Trace-Id", spanCtx.TraceID().String())
		}

		macCtx.Next()
		status := rw.Status()
		ext.HTTPStatusCode.Set(span, uint16(status))
		if status >= 200 && status < 300 {
			span.SetTag("http.size", rw.Size())
		}
		if status >= 400 {
			tracing.Error(span, errors.New(string(rw.errBody)))
		}
		span.Finish()
	}
}
