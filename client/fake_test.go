package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/adamwoolhether/httptask/transport"
)

// exchange scripts the outcome of one fake attempt.
type exchange struct {
	status  int
	body    string
	err     error
	nonHTTP bool
	// hold, when set, keeps the attempt running until closed or canceled.
	hold chan struct{}
}

type fakeSession struct {
	d      transport.Delegate
	script func(n int, req *http.Request) exchange

	mu      sync.Mutex
	handles []*fakeHandle
	wg      sync.WaitGroup
}

func newFakeSession(script func(n int, req *http.Request) exchange) *fakeSession {
	return &fakeSession{script: script}
}

func (s *fakeSession) factory() SessionFactory {
	return func(d transport.Delegate) (transport.Session, error) {
		s.d = d
		return s, nil
	}
}

func (s *fakeSession) DataTask(req *http.Request) transport.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &fakeHandle{
		id:       uint64(len(s.handles) + 1),
		n:        len(s.handles),
		req:      req,
		s:        s,
		state:    transport.Suspended,
		priority: transport.DefaultPriority,
		canceled: make(chan struct{}),
	}
	s.handles = append(s.handles, h)
	return h
}

func (s *fakeSession) Close() { s.wg.Wait() }

func (s *fakeSession) all() []*fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeHandle(nil), s.handles...)
}

func (s *fakeSession) run(h *fakeHandle) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ex := exchange{status: http.StatusOK}
		if s.script != nil {
			ex = s.script(h.n, h.req)
		}

		select {
		case <-h.canceled:
			h.finish(fmt.Errorf("fake: %w", transport.ErrCanceled))
			return
		default:
		}
		if ex.hold != nil {
			select {
			case <-ex.hold:
			case <-h.canceled:
				h.finish(fmt.Errorf("fake: %w", transport.ErrCanceled))
				return
			}
		}

		if ex.err != nil {
			h.finish(ex.err)
			return
		}

		var resp transport.Response = &transport.HTTPResponse{Response: &http.Response{
			StatusCode:    ex.status,
			Header:        http.Header{"Content-Type": {"text/plain"}},
			ContentLength: int64(len(ex.body)),
			Request:       h.req,
		}}
		if ex.nonHTTP {
			resp = fileResponse{u: h.req.URL}
		}

		s.d.DidReceiveResponse(h, resp)
		for chunk := range strings.SplitSeq(ex.body, "|") {
			if chunk != "" {
				s.d.DidReceiveData(h, []byte(chunk))
			}
		}
		h.finish(nil)
	}()
}

type fileResponse struct{ u *url.URL }

func (f fileResponse) URL() *url.URL                { return f.u }
func (f fileResponse) ExpectedContentLength() int64 { return -1 }

type fakeHandle struct {
	id  uint64
	n   int
	req *http.Request
	s   *fakeSession

	mu       sync.Mutex
	state    transport.State
	priority float32
	started  bool
	resumes  int
	suspends int
	cancels  int
	canceled chan struct{}
}

func (h *fakeHandle) ID() uint64             { return h.id }
func (h *fakeHandle) Request() *http.Request { return h.req }

func (h *fakeHandle) Resume() {
	h.mu.Lock()
	if h.state != transport.Suspended {
		h.mu.Unlock()
		return
	}
	h.state = transport.Running
	h.resumes++
	start := !h.started
	h.started = true
	h.mu.Unlock()

	if start {
		h.s.run(h)
	}
}

func (h *fakeHandle) Suspend() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suspends++
	if h.state == transport.Running {
		h.state = transport.Suspended
	}
}

func (h *fakeHandle) Cancel() {
	h.mu.Lock()
	if h.state == transport.Canceling || h.state == transport.Completed {
		h.mu.Unlock()
		return
	}
	h.state = transport.Canceling
	h.cancels++
	close(h.canceled)
	start := !h.started
	h.started = true
	h.mu.Unlock()

	if start {
		h.s.run(h)
	}
}

func (h *fakeHandle) State() transport.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHandle) Priority() float32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.priority
}

func (h *fakeHandle) SetPriority(p float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.priority = p
}

func (h *fakeHandle) counts() (resumes, suspends, cancels int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumes, h.suspends, h.cancels
}

func (h *fakeHandle) finish(err error) {
	h.mu.Lock()
	h.state = transport.Completed
	h.mu.Unlock()
	h.s.d.DidComplete(h, err)
}

// result collects completions.
type result struct {
	resp *Response
	err  error
}

type collector struct {
	mu    sync.Mutex
	calls int
	ch    chan result
}

func newCollector() *collector {
	return &collector{ch: make(chan result, 16)}
}

func (c *collector) complete(resp *Response, err error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.ch <- result{resp: resp, err: err}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// manualDelegate parks every decision until the test releases it.
type manualDelegate struct {
	mu        sync.Mutex
	proceeds  []func(*http.Request, error)
	retry     bool
	rewrite   func(*http.Request) *http.Request
	completed int
}

func (d *manualDelegate) RequestCreated(t *Task, req *http.Request, proceed func(*http.Request, error)) {
	d.mu.Lock()
	rewrite := d.rewrite
	if rewrite == nil {
		d.proceeds = append(d.proceeds, proceed)
	}
	d.mu.Unlock()

	if rewrite != nil {
		proceed(rewrite(req), nil)
	}
}

func (d *manualDelegate) RequestCompleted(t *Task, resp *Response, err error, decide func(bool)) {
	d.mu.Lock()
	d.completed++
	retry := d.retry
	d.mu.Unlock()
	decide(retry)
}

func (d *manualDelegate) proceed(i int, req *http.Request, err error) {
	d.mu.Lock()
	fn := d.proceeds[i]
	d.mu.Unlock()
	fn(req, err)
}
