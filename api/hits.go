package api

import (
	"net/http"

	"github.com/grafana/hitcounter/api/middleware"
	"github.com/grafana/hitcounter/api/models"
	"github.com/grafana/hitcounter/api/response"
	"github.com/grafana/hitcounter/series"
)

func (s *Server) status(ctx *middleware.Context) {
	s.hit(ctx, series.Status)
}

func (s *Server) secureStatus(ctx *middleware.Context) {
	s.hit(ctx, series.SecureStatus)
}

// hit records one request for id. It never fails: store trouble only
// degrades the returned count.
func (s *Server) hit(ctx *middleware.Context, id series.ID) {
	count := s.Counter.IncrementAndRecord(ctx.Req.Context(), id)
	response.Write(ctx.Resp, response.NewJson(http.StatusOK, models.StatusResp{
		Count:  count,
		Random: s.random(),
	}))
}

func (s *Server) metrics(ctx *middleware.Context, request models.MetricsQuery) {
	window, err := request.WindowSeconds(s.MetricsWindow)
	if err != nil {
		response.Write(ctx.Resp, response.NewError(http.StatusBadRequest, err.Error()))
		return
	}
	id := ctx.Mode.Series()
	points, err := s.Counter.QueryWindow(ctx.Req.Context(), id, window)
	if err != nil {
		if ctx.Req.Context().Err() != nil {
			response.WriteErr(ctx.Req.Context(), ctx.Resp, response.RequestCanceledErr)
			return
		}
		response.WriteErr(ctx.Req.Context(), ctx.Resp, response.WrapError(err))
		return
	}
	resp := models.NewMetricsResp()
	resp.Set(id, points)
	response.Write(ctx.Resp, response.NewFastJson(http.StatusOK, resp))
}

func (s *Server) health(ctx *middleware.Context) {
	response.Write(ctx.Resp, response.NewJson(http.StatusOK, models.HealthResp{
		Status: "healthy",
		Mode:   ctx.Mode.String(),
	}))
}
