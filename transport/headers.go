package transport

import (
	"net/http"
	"slices"
)

// defaultHeaders is an http.RoundTripper that fills in headers the request
// does not already carry.
type defaultHeaders struct {
	header http.Header
	base   http.RoundTripper
}

func (d defaultHeaders) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	for k, v := range d.header {
		if _, ok := cpy.Header[k]; ok {
			continue
		}
		cpy.Header[k] = slices.Clone(v)
	}
	return d.base.RoundTrip(cpy)
}
