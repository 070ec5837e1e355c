package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Error interface {
	// HTTPStatusCode is deliberately not named Code, which gocql errors also have
	HTTPStatusCode() int
	Error() string
}

// ErrorResp renders as {"error": "<message>"}
type ErrorResp struct {
	code int
	err  string
}

type errorJSON struct {
	Error string `json:"error"`
}

func errorBody(msg string) []byte {
	b, err := json.Marshal(errorJSON{Error: msg})
	if err != nil {
		return []byte(`{"error":"failed to encode error message"}`)
	}
	return b
}

// WrapError turns any error into a response. Errors that know their
// http status keep it, everything else is a 500.
func WrapError(e error) *ErrorResp {
	if err, ok := e.(*ErrorResp); ok {
		return err
	}
	resp := &ErrorResp{
		err:  e.Error(),
		code: http.StatusInternalServerError,
	}
	if err := Error(nil); errors.As(e, &err) {
		resp.code = err.HTTPStatusCode()
	}
	return resp
}

func NewError(code int, err string) *ErrorResp {
	return &ErrorResp{
		code: code,
		err:  err,
	}
}

func Errorf(code int, format string, a ...interface{}) *ErrorResp {
	return &ErrorResp{
		code: code,
		err:  fmt.Sprintf(format, a...),
	}
}

func (r *ErrorResp) Error() string {
	return r.err
}

func (r *ErrorResp) HTTPStatusCode() int {
	return r.code
}

func (r *ErrorResp) Code() int {
	return r.code
}

func (r *ErrorResp) Close() {}

func (r *ErrorResp) Body() ([]byte, error) {
	return errorBody(r.err), nil
}

func (r *ErrorResp) Headers() map[string]string {
	return map[string]string{"content-type": "application/json"}
}

const HttpClientClosedRequest = 499

var RequestCanceledErr = NewError(HttpClientClosedRequest, "request canceled")
