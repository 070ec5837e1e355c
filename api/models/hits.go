package models

import (
	"net/http"
	"strconv"

	"github.com/go-macaron/binding"
	"github.com/grafana/hitcounter/api/response"
	"github.com/grafana/hitcounter/series"
	"github.com/raintank/dur"
	"gopkg.in/macaron.v1"
)

// StatusResp is returned by the hit endpoints
type StatusResp struct {
	Count  uint64 `json:"count"`
	Random int    `json:"random"`
}

// HealthResp is returned by /health
type HealthResp struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// MetricsQuery are the parameters of /metrics
type MetricsQuery struct {
	// trailing window to return, e.g. "1h" or "2d". defaults to the configured metrics-window
	Window string `json:"window" form:"window"`
}

func (q MetricsQuery) Validate(ctx *macaron.Context, errs binding.Errors) binding.Errors {
	if q.Window == "" {
		return errs
	}
	if _, err := q.WindowSeconds(0); err != nil {
		errs = append(errs, binding.Error{
			FieldNames:     []string{"window"},
			Classification: "DurationError",
			Message:        err.Error(),
		})
	}
	return errs
}

// Error renders binding and validation failures as a 400 with our usual error body
func (q MetricsQuery) Error(ctx *macaron.Context, errs binding.Errors) {
	if len(errs) == 0 {
		return
	}
	msg := errs[0].Message
	if len(errs[0].FieldNames) > 0 {
		msg = errs[0].FieldNames[0] + ": " + msg
	}
	response.Write(ctx.Resp, response.NewError(http.StatusBadRequest, msg))
}

// WindowSeconds returns the requested window, or def if none was given
func (q MetricsQuery) WindowSeconds(def uint32) (uint32, error) {
	if q.Window == "" {
		return def, nil
	}
	return dur.ParseNDuration(q.Window)
}

// MetricsResp holds the points of both series. Only the series of the
// running mode is ever filled in, the other one is an empty list.
type MetricsResp struct {
	Status       []series.Point `json:"status"`
	SecureStatus []series.Point `json:"secure_status"`
}

func NewMetricsResp() MetricsResp {
	return MetricsResp{
		Status:       make([]series.Point, 0),
		SecureStatus: make([]series.Point, 0),
	}
}

// Set stores points as the points of id
func (m *MetricsResp) Set(id series.ID, points []series.Point) {
	if points == nil {
		points = make([]series.Point, 0)
	}
	switch id {
	case series.Status:
		m.Status = points
	case series.SecureStatus:
		m.SecureStatus = points
	}
}

func appendPoints(b []byte, points []series.Point) []byte {
	b = append(b, '[')
	for i, p := range points {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, `{"timestamp":`...)
		b = strconv.AppendUint(b, uint64(p.Ts), 10)
		b = append(b, `,"count":`...)
		b = strconv.AppendUint(b, p.Count, 10)
		b = append(b, '}')
	}
	return append(b, ']')
}

func (m MetricsResp) MarshalJSONFast(b []byte) ([]byte, error) {
	b = append(b, `{"status":`...)
	b = appendPoints(b, m.Status)
	b = append(b, `,"secure_status":`...)
	b = appendPoints(b, m.SecureStatus)
	return append(b, '}'), nil
}
