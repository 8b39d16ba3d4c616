package retry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/adamwoolhether/httptask/client"
	"github.com/adamwoolhether/httptask/transport"
)

// Delegate is a [client.RequestDelegate] driven by a Decider and a Waiter.
// The zero value retries with DefaultDecider and no wait.
type Delegate struct {
	// Decider defaults to DefaultDecider.
	Decider Decider
	// Waiter, if set, delays each retry.
	Waiter Waiter
	// Rewrite, if set, replaces every new request, e.g. to sign it. An
	// error fails the Task before it is sent.
	Rewrite func(*http.Request) (*http.Request, error)
	// Clock defaults to the wall clock.
	Clock  clock.Clock
	Logger *slog.Logger
}

var _ client.RequestDelegate = (*Delegate)(nil)

func (d *Delegate) RequestCreated(_ *client.Task, req *http.Request, proceed func(*http.Request, error)) {
	if d.Rewrite == nil {
		proceed(req, nil)
		return
	}
	proceed(d.Rewrite(req))
}

// RequestCompleted decides the retry. A canceled or finished Task is never
// retried, including one canceled while its wait was running, and neither
// is an attempt cut short by a closing session.
func (d *Delegate) RequestCompleted(t *client.Task, resp *client.Response, err error, decide func(bool)) {
	if !live(t) || errors.Is(err, transport.ErrSessionClosed) || !d.decider().Decide(t, resp, err) {
		decide(false)
		return
	}

	var wait time.Duration
	if d.Waiter != nil {
		wait = d.Waiter.Wait(t.Attempts())
	}
	if wait <= 0 {
		decide(true)
		return
	}

	d.logger().Debug("delaying retry", "task", t.ID(), "attempt", t.Attempts(), "wait", wait)
	d.clock().AfterFunc(wait, func() {
		decide(live(t))
	})
}

func live(t *client.Task) bool {
	switch t.State() {
	case client.Canceling, client.Completed:
		return false
	default:
		return true
	}
}

func (d *Delegate) decider() Decider {
	if d.Decider == nil {
		return DefaultDecider
	}
	return d.Decider
}

func (d *Delegate) clock() clock.Clock {
	if d.Clock == nil {
		return clock.New()
	}
	return d.Clock
}

func (d *Delegate) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
