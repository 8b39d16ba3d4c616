package client

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httptask/transport"
)

// CompletionFunc receives the outcome of a Task. Exactly one of resp and
// err is non-nil.
type CompletionFunc func(resp *Response, err error)

// Task is one logical HTTP exchange. It survives retries: every attempt
// gets a new transport handle, the Task stays the same.
//
// Lifecycle calls made before the Task reaches the transport are recorded
// and applied when the handle is attached.
type Task struct {
	id            uuid.UUID
	onComplete    CompletionFunc
	startManually bool

	mu       sync.Mutex
	req      *http.Request
	proxy    stateProxy
	response *Response
	attempts int
	canceled bool
	done     bool
	span     trace.Span
}

func newTask(req *http.Request, startManually bool, onComplete CompletionFunc) *Task {
	return &Task{
		id:            uuid.New(),
		onComplete:    onComplete,
		startManually: startManually,
		req:           req,
		proxy:         newDetached(),
	}
}

// ID returns the Task's identifier.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Resume starts or continues the Task.
func (t *Task) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.proxy.resume()
}

// Suspend pauses the Task.
func (t *Task) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.proxy.suspend()
}

// Cancel requests cancellation. The completion callback still runs, with
// an error wrapping [transport.ErrCanceled], once the transport reports it.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.canceled = true
	t.proxy.cancel()
}

// State returns the Task's logical state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return Completed
	}
	return t.proxy.state()
}

// Priority returns the scheduling priority in [0, 1].
func (t *Task) Priority() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.proxy.priority()
}

// SetPriority sets the scheduling priority, clamped to [0, 1].
func (t *Task) SetPriority(p float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.proxy.setPriority(p)
}

// Request returns the request the Task sends, after any rewrite by the
// RequestDelegate.
func (t *Task) Request() *http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.req
}

// Attempts returns how many attempts have completed.
func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Response returns the response of the current or last attempt, or nil.
func (t *Task) Response() *Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.response
}

func (t *Task) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

func (t *Task) setRequest(req *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.req = req
}

// attach binds h to the Task and replays state recorded while detached.
func (t *Task) attach(h transport.Handle, span trace.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, prio := t.proxy.state(), t.proxy.priority()
	t.proxy = &attached{h: h}
	t.response = nil
	t.span = span

	h.SetPriority(prio)
	switch st {
	case Pending:
		h.Resume()
	case Canceling:
		h.Cancel()
	case Suspended:
		h.Suspend()
	}
}

type attempt struct {
	count    int
	canceled bool
	response *Response
	span     trace.Span
}

// endAttempt counts a finished attempt and detaches the spent handle. A
// later attach starts the next attempt unless the Task was canceled or
// suspended in between.
func (t *Task) endAttempt() attempt {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	st := Pending
	if t.canceled {
		st = Canceling
	}
	t.proxy = &detached{st: st, prio: t.proxy.priority()}

	a := attempt{
		count:    t.attempts,
		canceled: t.canceled,
		response: t.response,
		span:     t.span,
	}
	t.span = nil

	return a
}

func (t *Task) didReceiveResponse(resp transport.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.response = NewResponse(resp, nil)
}

func (t *Task) didReceiveData(id uint64, b []byte) {
	t.mu.Lock()
	resp := t.response
	t.mu.Unlock()

	if resp == nil {
		panic(&InvariantError{Op: "receive data", TransportID: id, Msg: "data arrived before a response"})
	}
	resp.appendData(b)
}

type outcome struct {
	resp *Response
	err  error
}

// finish marks the Task completed and computes what the completion
// callback receives. It reports false if the Task was already finished.
func (t *Task) finish(err error) (outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return outcome{}, false
	}
	t.done = true
	t.proxy = &detached{st: Completed, prio: t.proxy.priority()}

	switch {
	case err != nil:
		return outcome{err: err}, true
	case t.response == nil:
		return outcome{err: ErrNonHTTPResponse}, true
	}
	if _, ok := t.response.HTTP(); !ok {
		return outcome{err: ErrNonHTTPResponse}, true
	}
	return outcome{resp: t.response}, true
}
