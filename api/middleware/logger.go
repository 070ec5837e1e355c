package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	macaron "gopkg.in/macaron.v1"
)

var (
	logHeaders = false
)

// SetLogHeaders controls whether the request headers of failed requests are logged
func SetLogHeaders(b bool) {
	logHeaders = b
}

type LoggingResponseWriter struct {
	macaron.ResponseWriter
	errBody []byte // the body in case it is an error
}

func (rw *LoggingResponseWriter) Write(b []byte) (int, error) {
	if rw.ResponseWriter.Status() >= 400 {
		rw.errBody = make([]byte, len(b))
		copy(rw.errBody, b)
	}
	return rw.ResponseWriter.Write(b)
}

// Logger logs every request that did not result in a 2xx.
// hits are too frequent to log individually
func Logger() macaron.Handler {
	return func(ctx *Context) {
		start := time.Now()
		rw := &LoggingResponseWriter{
			ResponseWriter: ctx.Resp,
		}
		ctx.Resp = rw
		ctx.MapTo(ctx.Resp, (*http.ResponseWriter)(nil))
		ctx.Next()

		if rw.Status() >= 200 && rw.Status() < 300 {
			return
		}

		fields := log.Fields{
			"method":   ctx.Req.Method,
			"path":     ctx.Req.URL.Path,
			"status":   rw.Status(),
			"duration": time.Since(start).String(),
			"mode":     ctx.Mode.String(),
		}
		if q := ctx.Req.URL.RawQuery; q != "" {
			fields["query"] = q
		}
		if traceID, ok := extractTraceID(ctx.Req.Context()); ok {
			fields["traceID"] = traceID
		}
		if referer := ctx.Req.Referer(); referer != "" {
			fields["referer"] = referer
		}
		if sourceIP := ctx.RemoteAddr(); sourceIP != "" {
			fields["sourceIP"] = sourceIP
		}
		if len(rw.errBody) > 0 {
			fields["error"] = string(rw.errBody)
		}
		if logHeaders {
			headers, err := extractHeaders(ctx.Req.Request)
			if err != nil {
				log.Errorf("Could not extract request headers: %v", err)
			}
			if headers != "" {
				fields["headers"] = headers
			}
		}

		entry := log.WithFields(fields)
		if rw.Status() >= 500 {
			entry.Error("request failed")
			return
		}
		entry.Info("request failed")
	}
}

func extractHeaders(req *http.Request) (string, error) {
	var b bytes.Buffer

	// Exclude some headers for security, or just that we don't need them when debugging
	err := req.Header.WriteSubset(&b, map[string]bool{
		"Cookie":        true,
		"X-Csrf-Token":  true,
		"Authorization": true,
	})
	if err != nil {
		return "", err
	}
	return url.PathEscape(b.String()), nil
}

func extractTraceID(ctx context.Context) (string, bool) {
	sp := opentracing.SpanFromContext(ctx)
	if sp == nil {
		return "", false
	}
	sctx, ok := sp.Context().(jaeger.SpanContext)
	if !ok {
		return "", false
	}

	return sctx.TraceID().String(), true
}
