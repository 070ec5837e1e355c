package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	hcerrors "github.com/grafana/hitcounter/errors"
)

type points []int

func (p points) MarshalJSONFast(b []byte) ([]byte, error) {
	b = append(b, '[')
	for i, v := range p {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return append(b, ']'), nil
}

type failing struct{}

func (failing) MarshalJSONFast(b []byte) ([]byte, error) {
	return b, errors.New("cannot encode")
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name     string
		resp     Response
		expCode  int
		expBody  string
		expCType string
	}{
		{
			name:     "json",
			resp:     NewJson(200, map[string]int{"count": 3}),
			expCode:  200,
			expBody:  `{"count":3}`,
			expCType: "application/json",
		},
		{
			name:     "fast json",
			resp:     NewFastJson(200, points{1, 2, 3}),
			expCode:  200,
			expBody:  `[1,2,3]`,
			expCType: "application/json",
		},
		{
			name:     "fast json failure",
			resp:     NewFastJson(200, failing{}),
			expCode:  500,
			expBody:  `{"error":"cannot encode"}`,
			expCType: "application/json",
		},
		{
			name:     "not found",
			resp:     WrapError(hcerrors.NewNotFound("Not found")),
			expCode:  404,
			expBody:  `{"error":"Not found"}`,
			expCType: "application/json",
		},
		{
			name:     "bad request",
			resp:     WrapError(fmt.Errorf("parsing window: %w", hcerrors.NewBadRequest(`invalid "x"`))),
			expCode:  400,
			expBody:  `{"error":"parsing window: invalid \"x\""}`,
			expCType: "application/json",
		},
		{
			name:     "unknown errors are internal",
			resp:     WrapError(errors.New("store down")),
			expCode:  500,
			expBody:  `{"error":"store down"}`,
			expCType: "application/json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Write(w, tt.resp)
			if w.Code != tt.expCode {
				t.Errorf("expected code %d, got %d", tt.expCode, w.Code)
			}
			if w.Body.String() != tt.expBody {
				t.Errorf("expected body %s, got %s", tt.expBody, w.Body.String())
			}
			if ct := w.Header().Get("content-type"); ct != tt.expCType {
				t.Errorf("expected content-type %q, got %q", tt.expCType, ct)
			}
		})
	}
}

func TestWrapErrorKeepsErrorResp(t *testing.T) {
	orig := NewError(http.StatusTeapot, "short and stout")
	if WrapError(orig) != orig {
		t.Fatalf("wrapping an ErrorResp should return it as is")
	}
	if RequestCanceledErr.Code() != HttpClientClosedRequest {
		t.Fatalf("unexpected code for canceled requests")
	}
}
