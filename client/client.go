package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httptask/config"
	"github.com/adamwoolhether/httptask/request"
	"github.com/adamwoolhether/httptask/transport"
)

// Client submits Tasks to a transport session and drives them through
// delegate interception, retries and completion.
type Client struct {
	session    transport.Session
	factory    *config.Factory
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	dispatcher Dispatcher
	reg        *registry
	// pending counts Tasks whose completion has not been dispatched.
	pending sync.WaitGroup

	mu              sync.RWMutex
	maxRetries      int
	requestDelegate RequestDelegate
	taskDelegate    TaskDelegate
}

// Build creates a Client. Without options it uses [config.Default] and a
// [transport.HTTPSession].
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	c := &Client{
		logger:          slog.Default(),
		tracer:          noop.NewTracerProvider().Tracer("no-op tracer"),
		propagator:      otel.GetTextMapPropagator(),
		dispatcher:      Inline,
		reg:             newRegistry(),
		requestDelegate: opts.requestDelegate,
		taskDelegate:    opts.taskDelegate,
	}
	if opts.logger != nil {
		c.logger = opts.logger
	}
	if opts.tracer != nil {
		c.tracer = opts.tracer
	}
	if opts.propagator != nil {
		c.propagator = opts.propagator
	}
	if opts.dispatcher != nil {
		c.dispatcher = opts.dispatcher
	}

	switch {
	case opts.factory != nil:
		c.factory = opts.factory
	default:
		cfg := config.Default()
		if opts.cfg != nil {
			cfg = *opts.cfg
		}
		f, err := config.NewFactory(cfg, config.WithLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("building request factory: %w", err)
		}
		c.factory = f
	}

	c.maxRetries = c.factory.Config().MaxRetries
	if opts.maxRetries != nil {
		c.maxRetries = *opts.maxRetries
	}

	newSession := opts.session
	if newSession == nil {
		newSession = c.httpSession(opts.transportOpts)
	}
	sess, err := newSession(sessionDelegate{c: c})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	c.session = sess

	return c, nil
}

func (c *Client) httpSession(extra []transport.Option) SessionFactory {
	return func(d transport.Delegate) (transport.Session, error) {
		opts, err := c.factory.Config().TransportOptions()
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithLogger(c.logger))
		opts = append(opts, extra...)

		return transport.NewHTTPSession(d, opts...)
	}
}

// CreateTask wraps req in a Task and sends it, after the RequestDelegate
// has seen it if one is installed. Unless startManually is set the Task
// is resumed as soon as it reaches the transport. The Task is returned
// before it is sent.
func (c *Client) CreateTask(req *http.Request, startManually bool, onComplete CompletionFunc) *Task {
	t := newTask(req, startManually, onComplete)
	c.pending.Add(1)
	c.reg.hold(t)

	rd := c.RequestDelegate()
	if rd == nil {
		c.submit(t, true)
		return t
	}

	rd.RequestCreated(t, req, once2(func(next *http.Request, err error) {
		if err != nil {
			c.logger.Debug("request rejected by delegate", "task", t.id, "error", err)
			c.finalize(t, err)
			return
		}
		if next != nil {
			t.setRequest(next)
		}
		c.submit(t, true)
	}))

	return t
}

// Submit builds r with ctx and creates a Task for it.
func (c *Client) Submit(ctx context.Context, r *request.Request, startManually bool, onComplete CompletionFunc) *Task {
	return c.CreateTask(r.Build(ctx), startManually, onComplete)
}

// submit hands the Task's current request to the transport.
func (c *Client) submit(t *Task, first bool) {
	req, span := c.startAttempt(t, t.Request())

	h := c.session.DataTask(req)
	c.reg.install(h.ID(), t)
	t.attach(h, span)

	c.logger.Debug("task submitted", "task", t.id, "transport_id", h.ID(), "method", req.Method, "url", req.URL.String(), "attempt", t.Attempts()+1)

	if first && !t.startManually {
		t.Resume()
	}
}

// complete handles the end of one attempt.
func (c *Client) complete(t *Task, id uint64, err error) {
	a := t.endAttempt()
	endAttempt(a.span, a.response, err)

	rd := c.RequestDelegate()
	if rd == nil {
		c.finalize(t, err)
		return
	}

	rd.RequestCompleted(t, a.response, err, once1(func(retry bool) {
		maxRetries := c.MaxRetries()
		if !retry || a.canceled || t.isCanceled() || a.count >= maxRetries || errors.Is(err, transport.ErrSessionClosed) {
			c.finalize(t, err)
			return
		}

		c.logger.Info("retrying request", "task", t.id, "transport_id", id, "attempt", a.count, "max_retries", maxRetries, "error", err)
		c.reg.hold(t)
		c.submit(t, false)
	}))
}

// finalize removes t from the registry and dispatches its completion.
func (c *Client) finalize(t *Task, err error) {
	out, ok := t.finish(err)
	if !ok {
		return
	}
	c.reg.remove(t)

	c.logger.Debug("task finished", "task", t.id, "attempts", t.Attempts(), "error", out.err)

	defer c.pending.Done()
	if t.onComplete == nil {
		return
	}
	c.dispatcher.Dispatch(func() {
		t.onComplete(out.resp, out.err)
	})
}

// CancelAllTasks cancels every Task in flight. Each still completes
// through its callback.
func (c *Client) CancelAllTasks() {
	for _, t := range c.reg.snapshot() {
		t.Cancel()
	}
}

// InFlight returns the Tasks that have not finished.
func (c *Client) InFlight() []*Task {
	return c.reg.snapshot()
}

// MaxRetries returns the attempt ceiling.
func (c *Client) MaxRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxRetries
}

// SetMaxRetries sets the attempt ceiling used for later retry decisions.
func (c *Client) SetMaxRetries(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxRetries = max(n, 0)
}

// RequestDelegate returns the installed RequestDelegate, or nil.
func (c *Client) RequestDelegate() RequestDelegate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requestDelegate
}

// SetRequestDelegate installs d, replacing any previous one.
func (c *Client) SetRequestDelegate(d RequestDelegate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestDelegate = d
}

// RemoveRequestDelegate uninstalls the RequestDelegate.
func (c *Client) RemoveRequestDelegate() {
	c.SetRequestDelegate(nil)
}

// TaskDelegate returns the installed TaskDelegate, or nil.
func (c *Client) TaskDelegate() TaskDelegate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.taskDelegate
}

// SetTaskDelegate installs d, replacing any previous one.
func (c *Client) SetTaskDelegate(d TaskDelegate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taskDelegate = d
}

// RemoveTaskDelegate uninstalls the TaskDelegate.
func (c *Client) RemoveTaskDelegate() {
	c.SetTaskDelegate(nil)
}

// Close closes the session and returns once every Task has finished and
// its completion has been dispatched, so with the Inline dispatcher every
// callback has run. Tasks still in flight complete with an error wrapping
// [transport.ErrSessionClosed] and are not retried. Close must not be
// called from an Inline completion callback.
func (c *Client) Close() {
	c.session.Close()
	// Handles that never started are not completed by the session.
	c.CancelAllTasks()
	c.pending.Wait()
}

// sessionDelegate receives transport callbacks and routes them to Tasks.
type sessionDelegate struct {
	c *Client
}

func (d sessionDelegate) DidReceiveResponse(h transport.Handle, resp transport.Response) transport.Disposition {
	t := d.c.reg.mustLookup(h.ID(), "receive response")
	t.didReceiveResponse(resp)
	return transport.Allow
}

func (d sessionDelegate) DidReceiveData(h transport.Handle, data []byte) {
	t := d.c.reg.mustLookup(h.ID(), "receive data")
	t.didReceiveData(h.ID(), data)
}

func (d sessionDelegate) DidComplete(h transport.Handle, err error) {
	t := d.c.reg.mustLookup(h.ID(), "complete")
	d.c.complete(t, h.ID(), err)
}

func (d sessionDelegate) WillCacheResponse(h transport.Handle, proposed *transport.CachedResponse, decide func(*transport.CachedResponse)) {
	t := d.c.reg.mustLookup(h.ID(), "cache response")
	td := d.c.TaskDelegate()
	if td == nil {
		decide(proposed)
		return
	}
	td.WillCacheResponse(t, proposed, once1(decide))
}

func (d sessionDelegate) WaitingForConnectivity(h transport.Handle) {
	t := d.c.reg.mustLookup(h.ID(), "wait for connectivity")
	d.c.logger.Info("waiting for connectivity", "task", t.id, "transport_id", h.ID())
	if td := d.c.TaskDelegate(); td != nil {
		td.WaitingForConnectivity(t)
	}
}

func (d sessionDelegate) DidReceiveChallenge(h transport.Handle, c *transport.Challenge, decide func(transport.ChallengeDisposition, *transport.Credential)) {
	t := d.c.reg.mustLookup(h.ID(), "receive challenge")
	td := d.c.TaskDelegate()
	if td == nil {
		decide(transport.PerformDefaultHandling, nil)
		return
	}
	td.DidReceiveChallenge(t, c, once2(decide))
}
