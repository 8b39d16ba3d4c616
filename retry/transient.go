package retry

import (
	"errors"
	"syscall"

	"github.com/adamwoolhether/httptask/transport"
)

// Category classifies an attempt error by how likely a retry is to help.
type Category int

const (
	// Not is any error no other Category claims, including nil.
	Not Category = iota
	// Canceled is an attempt canceled through its Task.
	Canceled
	// Closed is an attempt cut short because the session closed.
	Closed
	// Timeout is any error reporting Timeout() == true, including an
	// expired request timeout.
	Timeout
	// Unreachable is a failed name lookup or an unreachable network.
	Unreachable
	// ConnRefused means the host answered but nothing listens on the port.
	// The service may be restarting.
	ConnRefused
	// ConnReset means the connection broke mid-exchange.
	ConnReset
)

func (c Category) String() string {
	switch c {
	case Not:
		return "not"
	case Canceled:
		return "canceled"
	case Closed:
		return "closed"
	case Timeout:
		return "timeout"
	case Unreachable:
		return "unreachable"
	case ConnRefused:
		return "connRefused"
	case ConnReset:
		return "connReset"
	default:
		return "unknown"
	}
}

// Transient reports whether errors of this Category may succeed on a
// later attempt.
func (c Category) Transient() bool {
	switch c {
	case Timeout, Unreachable, ConnRefused, ConnReset:
		return true
	default:
		return false
	}
}

var errnos = map[syscall.Errno]Category{
	syscall.ECONNREFUSED: ConnRefused,
	syscall.ECONNRESET:   ConnReset,
	syscall.ECONNABORTED: ConnReset,
	syscall.EPIPE:        ConnReset,
}

// Categorize returns the Category of err. Cancellation and session close
// win over everything else, since the transport error they wrap is a side
// effect of tearing the exchange down. A Timeout method returning true
// wins over the errno.
func Categorize(err error) Category {
	switch {
	case err == nil:
		return Not
	case errors.Is(err, transport.ErrSessionClosed):
		return Closed
	case errors.Is(err, transport.ErrCanceled):
		return Canceled
	}

	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return Timeout
	}
	if transport.IsUnreachable(err) {
		return Unreachable
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errnos[errno]
	}
	return Not
}
