package client

import (
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/adamwoolhether/httptask/transport"
)

// ResponseState is the coarse classification of a response status.
type ResponseState int

const (
	StatusUndefined ResponseState = iota
	StatusPending
	StatusSuccess
	StatusRedirect
	StatusClientError
	StatusServerError
)

func (s ResponseState) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusRedirect:
		return "redirect"
	case StatusClientError:
		return "clientError"
	case StatusServerError:
		return "serverError"
	default:
		return "undefined"
	}
}

// Classify maps an HTTP status code to its ResponseState.
func Classify(code int) ResponseState {
	switch {
	case code >= 100 && code <= 199:
		return StatusPending
	case code >= 200 && code <= 299:
		return StatusSuccess
	case code >= 300 && code <= 399:
		return StatusRedirect
	case code >= 400 && code <= 499:
		return StatusClientError
	case code >= 500 && code <= 599:
		return StatusServerError
	default:
		return StatusUndefined
	}
}

// Response is a received response head plus the body accumulated so far.
type Response struct {
	raw transport.Response

	mu   sync.RWMutex
	body []byte
}

// NewResponse wraps raw with the given body. Sessions build Responses
// themselves; this is for decision code that needs one without a Task.
func NewResponse(raw transport.Response, body []byte) *Response {
	return &Response{raw: raw, body: body}
}

// Raw returns the response as delivered by the transport.
func (r *Response) Raw() transport.Response {
	return r.raw
}

// HTTP returns the underlying HTTP response head. The boolean is false for
// non-HTTP responses. The response body must not be read.
func (r *Response) HTTP() (*http.Response, bool) {
	hr, ok := r.raw.(*transport.HTTPResponse)
	if !ok || hr == nil || hr.Response == nil {
		return nil, false
	}
	return hr.Response, true
}

// StatusCode returns the HTTP status code, 0 for non-HTTP responses.
func (r *Response) StatusCode() int {
	hr, ok := r.HTTP()
	if !ok {
		return 0
	}
	return hr.StatusCode
}

// State classifies the status code; non-HTTP responses are StatusUndefined.
func (r *Response) State() ResponseState {
	if _, ok := r.HTTP(); !ok {
		return StatusUndefined
	}
	return Classify(r.StatusCode())
}

// Header returns the response headers, nil for non-HTTP responses.
func (r *Response) Header() http.Header {
	hr, ok := r.HTTP()
	if !ok {
		return nil
	}
	return hr.Header
}

// URL returns the final URL of the exchange.
func (r *Response) URL() *url.URL {
	if r.raw == nil {
		return nil
	}
	return r.raw.URL()
}

// Body returns a copy of the body received so far.
func (r *Response) Body() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.body)
}

func (r *Response) appendData(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.body = append(r.body, b...)
}
