package request

import (
	"errors"
	"maps"
	"net/http"
	"time"

	"github.com/adamwoolhether/httptask/transport"
)

// Option is a functional option for [New].
type Option func(r *Request) error

// WithQuery adds query parameters. Later values for a key win.
func WithQuery(query map[string]string) Option {
	return func(r *Request) error {
		if r.Query == nil {
			r.Query = make(map[string]string, len(query))
		}
		maps.Copy(r.Query, query)
		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers http.Header) Option {
	return func(r *Request) error {
		for k, v := range headers {
			for _, element := range v {
				r.Header.Add(k, element)
			}
		}
		return nil
	}
}

// WithHeader sets a single header, replacing any existing values.
func WithHeader(key, value string) Option {
	return func(r *Request) error {
		if key == "" {
			return errors.New("header key must not be empty")
		}
		r.Header.Set(key, value)
		return nil
	}
}

// WithBody sets the raw request body.
func WithBody(body []byte) Option {
	return func(r *Request) error {
		r.Body = body
		return nil
	}
}

// WithCachePolicy overrides the cache policy.
func WithCachePolicy(p transport.CachePolicy) Option {
	return func(r *Request) error {
		if p < transport.UseProtocolCachePolicy || p > transport.ReturnCacheDataDontLoad {
			return errors.New("unknown cache policy")
		}
		r.CachePolicy = p
		return nil
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Request) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		r.Timeout = d
		return nil
	}
}
