package client

import (
	"errors"
	"fmt"
)

// maxErrBodySize caps the amount of response body copied into an
// UnexpectedStatusError.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrInternal is wrapped by every internal-consistency failure.
	ErrInternal = errors.New("internal consistency failure")
	// ErrNonHTTPResponse is delivered when an exchange finishes without error
	// but the transport never produced an HTTP response.
	ErrNonHTTPResponse = fmt.Errorf("%w: non-HTTP response", ErrInternal)

	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

// UnexpectedStatusError is passed to a [StatusRouter]'s Catch handler
// when no route matches the response status.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// InvariantError reports a broken internal invariant, such as a transport
// callback for an unknown handle. It is raised with panic, never returned.
type InvariantError struct {
	Op          string
	TransportID uint64
	Msg         string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("httptask: %s: transport id %d: %s", e.Op, e.TransportID, e.Msg)
}

func (e *InvariantError) Unwrap() error {
	return ErrInternal
}
