package transport

import (
	"context"
	"net/http"
	"sync"
)

// dataTask is the Handle created by HTTPSession.
type dataTask struct {
	id      uint64
	session *HTTPSession
	req     *http.Request

	ctx    context.Context
	cancel context.CancelCauseFunc
	stop   func() bool

	mu       sync.Mutex
	state    State
	priority float32
	started  bool
	// gate is closed while the handle may make progress.
	gate chan struct{}
}

func (t *dataTask) ID() uint64             { return t.id }
func (t *dataTask) Request() *http.Request { return t.req }

func (t *dataTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *dataTask) Priority() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

func (t *dataTask) SetPriority(p float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.priority = ClampPriority(p)
}

func (t *dataTask) Resume() {
	t.mu.Lock()
	if t.state != Suspended {
		t.mu.Unlock()
		return
	}
	t.state = Running
	close(t.gate)
	start := !t.started
	t.started = true
	t.mu.Unlock()

	if start {
		t.session.start(t)
	}
}

func (t *dataTask) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return
	}
	t.state = Suspended
	t.gate = make(chan struct{})
}

func (t *dataTask) Cancel() {
	t.mu.Lock()
	if t.state == Canceling || t.state == Completed {
		t.mu.Unlock()
		return
	}
	t.state = Canceling
	start := !t.started
	t.started = true
	t.mu.Unlock()

	t.cancel(ErrCanceled)
	if start {
		t.session.start(t)
	}
}

// wait blocks while the handle is suspended.
func (t *dataTask) wait(ctx context.Context) error {
	t.mu.Lock()
	gate := t.gate
	t.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (t *dataTask) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Completed
}
