package client

import (
	"errors"
	"net/http"
)

// StatusRouter builds a CompletionFunc that dispatches on the response
// status. Routes are tried in the order they were added.
//
//	onComplete := client.NewStatusRouter().
//		Success(func(r *client.Response) { ... }).
//		Code(http.StatusNotFound, func(r *client.Response) { ... }).
//		Catch(func(err error) { ... }).
//		Complete()
type StatusRouter struct {
	routes   []route
	fallback func(*Response)
	catch    func(error)
}

type route struct {
	lo, hi int
	fn     func(*Response)
}

func NewStatusRouter() *StatusRouter {
	return &StatusRouter{}
}

// Code handles one status code.
func (r *StatusRouter) Code(code int, fn func(*Response)) *StatusRouter {
	return r.Range(code, code, fn)
}

// Range handles status codes in [lo, hi].
func (r *StatusRouter) Range(lo, hi int, fn func(*Response)) *StatusRouter {
	r.routes = append(r.routes, route{lo: lo, hi: hi, fn: fn})
	return r
}

// Success handles 2xx responses.
func (r *StatusRouter) Success(fn func(*Response)) *StatusRouter {
	return r.Range(200, 299, fn)
}

// ClientError handles 4xx responses.
func (r *StatusRouter) ClientError(fn func(*Response)) *StatusRouter {
	return r.Range(400, 499, fn)
}

// ServerError handles 5xx responses.
func (r *StatusRouter) ServerError(fn func(*Response)) *StatusRouter {
	return r.Range(500, 599, fn)
}

// Any handles responses no route matched.
func (r *StatusRouter) Any(fn func(*Response)) *StatusRouter {
	r.fallback = fn
	return r
}

// Catch handles errors, including an *UnexpectedStatusError for
// responses nothing else handled.
func (r *StatusRouter) Catch(fn func(error)) *StatusRouter {
	r.catch = fn
	return r
}

// Complete returns the CompletionFunc.
func (r *StatusRouter) Complete() CompletionFunc {
	return func(resp *Response, err error) {
		if err != nil {
			r.fail(err)
			return
		}

		code := resp.StatusCode()
		for _, rt := range r.routes {
			if code >= rt.lo && code <= rt.hi {
				rt.fn(resp)
				return
			}
		}
		if r.fallback != nil {
			r.fallback(resp)
			return
		}

		r.fail(unexpectedStatus(resp))
	}
}

func (r *StatusRouter) fail(err error) {
	if r.catch != nil {
		r.catch(err)
	}
}

func unexpectedStatus(resp *Response) error {
	body := resp.Body()
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}

	sentinel := ErrUnexpectedStatusCode
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode(),
		Body:       string(body),
		Err:        sentinel,
	}
}
