// Package request describes a single HTTP call and builds the
// [http.Request] handed to a transport.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/adamwoolhether/httptask/transport"
)

var (
	ErrInvalidMethod = errors.New("invalid request method")
	ErrInvalidURL    = errors.New("invalid request url")
)

// Method is an HTTP request method supported by the task layer.
type Method string

const (
	Get    Method = http.MethodGet
	Post   Method = http.MethodPost
	Put    Method = http.MethodPut
	Delete Method = http.MethodDelete
	Patch  Method = http.MethodPatch
)

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case Get, Post, Put, Delete, Patch:
		return true
	default:
		return false
	}
}

// TakesBody reports whether a body is attached when m is built.
func (m Method) TakesBody() bool {
	return m.Valid() && m != Get
}

// ExpectsBody reports whether a request with m normally carries a body.
func (m Method) ExpectsBody() bool {
	return m == Post || m == Put
}

// Request is the description of one HTTP call. Fields may be changed
// after New; Build reads them as they are at call time.
type Request struct {
	URL         *url.URL
	Method      Method
	Query       map[string]string
	Header      http.Header
	Body        []byte
	CachePolicy transport.CachePolicy
	Timeout     time.Duration
}

// New returns a Request for the absolute URL u.
func New(u *url.URL, m Method, opts ...Option) (*Request, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, m)
	}
	if err := CheckURL(u); err != nil {
		return nil, err
	}

	cpy := *u
	r := &Request{
		URL:    &cpy,
		Method: m,
		Header: make(http.Header),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("applying request option: %w", err)
		}
	}

	return r, nil
}

// CheckURL reports an error wrapping ErrInvalidURL unless u is an absolute
// http or https URL with a host.
func CheckURL(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("%w: nil", ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, u.String())
	}
	return nil
}

// FullURL returns URL with Query merged into its existing query string.
func (r *Request) FullURL() (*url.URL, error) {
	if r.URL == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidURL)
	}

	u := *r.URL
	if len(r.Query) > 0 {
		q := u.Query()
		for k, v := range r.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	parsed, err := url.Parse(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return parsed, nil
}

// Build returns the transport-ready request. The body is attached only when
// the method takes one. Cache policy and timeout are carried as
// [transport.RequestOptions].
//
// Build panics if the URL cannot be composed; that is a configuration
// error, not a runtime condition.
func (r *Request) Build(ctx context.Context) *http.Request {
	u, err := r.FullURL()
	if err != nil {
		panic(fmt.Sprintf("request: composing url: %v", err))
	}

	var body io.Reader
	if r.Method.TakesBody() && len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(r.Method), u.String(), body)
	if err != nil {
		panic(fmt.Sprintf("request: instantiating request: %v", err))
	}
	if r.Header != nil {
		req.Header = r.Header.Clone()
	}

	return transport.WithRequestOptions(req, transport.RequestOptions{
		CachePolicy: r.CachePolicy,
		Timeout:     r.Timeout,
	})
}
