package tracing

import (
	"context"
	"fmt"

	"github.com/grafana/hitcounter/series"
	opentracing "github.com/opentracing/opentracing-go"
	tags "github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

// NewSpan creates a span for an operation, as a child of the span in ctx if there is one,
// and returns a context carrying the new span. callers must call span.Finish() when done
func NewSpan(ctx context.Context, tracer opentracing.Tracer, name string) (context.Context, opentracing.Span) {
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, name)
	return ctx, span
}

// TagSeries annotates the span with the series it operates on
func TagSeries(span opentracing.Span, id series.ID) {
	span.SetTag("series", id.String())
}

// TagRange annotates the span with the start of a range query and its order
func TagRange(span opentracing.Span, from uint32, order series.Order) {
	span.SetTag("from", from)
	span.SetTag("order", order.String())
}

// Error marks the span as failed, and logs error
func Error(span opentracing.Span, err error) {
	tags.Error.Set(span, true)
	span.LogFields(log.Error(err))
}

// Errorf marks the span as failed, and logs error
func Errorf(span opentracing.Span, format string, a ...interface{}) {
	tags.Error.Set(span, true)
	span.LogFields(log.Error(fmt.Errorf(format, a...)))
}
