package response

// FastJSON is implemented by bodies that can append their own json encoding
// to a buffer, avoiding reflection for large responses
type FastJSON interface {
	MarshalJSONFast([]byte) ([]byte, error)
}

type FastJson struct {
	code int
	body FastJSON
	buf  []byte
}

func NewFastJson(code int, body FastJSON) *FastJson {
	return &FastJson{
		code: code,
		body: body,
		buf:  BufferPool.Get(),
	}
}

func (r *FastJson) Code() int {
	return r.code
}

func (r *FastJson) Close() {
	BufferPool.Put(r.buf)
}

func (r *FastJson) Body() ([]byte, error) {
	var err error
	r.buf, err = r.body.MarshalJSONFast(r.buf[:0])
	return r.buf, err
}

func (r *FastJson) Headers() map[string]string {
	return map[string]string{"content-type": "application/json"}
}
