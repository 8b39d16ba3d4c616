package retry

import (
	"net/http"
	"slices"

	"github.com/adamwoolhether/httptask/client"
)

// A Decider decides if a finished attempt should be retried. resp is the
// response of the attempt, nil if there was none; err is the transport
// error, if any.
//
// Implementations must be safe for concurrent use.
type Decider interface {
	Decide(t *client.Task, resp *client.Response, err error) bool
}

// DeciderFunc adapts a function to the Decider interface and composes
// deciders with And and Or.
type DeciderFunc func(t *client.Task, resp *client.Response, err error) bool

// DefaultDecider retries 429, 502, 503 and 504 responses, and transient
// transport errors.
var DefaultDecider = StatusCode(
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
).Or(TransientErr)

var (
	// TransientErr retries errors whose Category is transient.
	TransientErr DeciderFunc = func(_ *client.Task, _ *client.Response, err error) bool {
		return Categorize(err).Transient()
	}
	// ServerError retries any 5xx response.
	ServerError DeciderFunc = func(_ *client.Task, resp *client.Response, _ error) bool {
		return resp != nil && resp.State() == client.StatusServerError
	}
	Never  DeciderFunc = func(*client.Task, *client.Response, error) bool { return false }
	Always DeciderFunc = func(*client.Task, *client.Response, error) bool { return true }
)

func (f DeciderFunc) Decide(t *client.Task, resp *client.Response, err error) bool {
	return f(t, resp, err)
}

// And returns a decider that is true when both f and g are. g is not
// evaluated if f is false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(t *client.Task, resp *client.Response, err error) bool {
		return f(t, resp, err) && g(t, resp, err)
	}
}

// Or returns a decider that is true when either f or g is. g is not
// evaluated if f is true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(t *client.Task, resp *client.Response, err error) bool {
		return f(t, resp, err) || g(t, resp, err)
	}
}

// StatusCode retries responses whose status is one of codes.
func StatusCode(codes ...int) DeciderFunc {
	codes = slices.Clone(codes)
	return func(_ *client.Task, resp *client.Response, _ error) bool {
		return resp != nil && slices.Contains(codes, resp.StatusCode())
	}
}
