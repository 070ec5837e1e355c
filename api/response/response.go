package response

import (
	"context"
	"net/http"

	"github.com/grafana/hitcounter/util"
	opentracing "github.com/opentracing/opentracing-go"
	tags "github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

var BufferPool = util.NewBufferPool() // used by fastjson responses to serialize into

func Write(w http.ResponseWriter, resp Response) {
	defer resp.Close()
	body, err := resp.Body()
	if err != nil {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(errorBody(err.Error()))
		return
	}
	for k, v := range resp.Headers() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Code())
	w.Write(body)
}

// WriteErr writes the response and marks the span in ctx, if any, as failed
func WriteErr(ctx context.Context, w http.ResponseWriter, resp Response) {
	Write(w, resp)
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return
	}
	body, _ := resp.Body()
	span.LogFields(log.String("error.kind", string(body)))
	tags.Error.Set(span, true)
}

type Response interface {
	Code() int
	Body() ([]byte, error)
	Headers() map[string]string
	Close()
}
