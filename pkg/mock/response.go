package mock

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Response is a produced mock response.
type Response struct {
	StatusCode int
	Header     Header
	Body       Body
	// Delay is applied by the interception transport before the response
	// is handed back to the caller.
	Delay time.Duration
}

// NewResponse returns a response with the given status and body and an
// empty header collection.
func NewResponse(status int, body []byte) *Response {
	return &Response{StatusCode: status, Header: Header{}, Body: body}
}

// HTTP converts the response into an *http.Response answering req.
func (r *Response) HTTP(req *http.Request) *http.Response {
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	header := make(http.Header, len(r.Header)+1)
	for name, values := range r.Header {
		for _, v := range values {
			header.Add(name, v)
		}
	}
	if header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	var body io.ReadCloser = http.NoBody
	if len(r.Body) > 0 && (req == nil || req.Method != http.MethodHead) {
		body = io.NopCloser(bytes.NewReader(r.Body))
	}

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}
